// Newswire - Real-time Alert Ingestion and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/newswire

/*
Package supervisor runs the long-lived components of Newswire under a suture v4
tree.

	Root ("newswire")
	├── "ingestion-layer"
	│   ├── event-bus (RunnerService)
	│   ├── source-poller
	│   └── dedup-gc (GCService, Badger backend only)
	├── "distribution-layer"
	│   ├── distribution-engine
	│   └── publisher-intake
	└── "api-layer"
	    └── http-server (HTTPServerService)

Crashed services restart with backoff. The bus router cannot be restarted in
place, so RunnerService terminates the tree if it stops on its own and the
process exits non-zero.

Supervisor events are logged through sutureslog with the slog adapter from
the logging package:

	tree, err := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddIngestionService(supervisor.NewRunnerService(eventBus))
	tree.AddAPIService(supervisor.NewHTTPServerService(srv, 10*time.Second))
	err = tree.Serve(ctx)
*/
package supervisor
