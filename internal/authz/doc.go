// Newswire - Real-time Alert Ingestion and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/newswire

/*
Package authz is role-based route authorization with Casbin.

The model (model.conf) matches a role against a path pattern with keyMatch2
and an action regex. The embedded policy (policy.csv) grants:

	anonymous   public reads, subscriber and publisher registration, intake
	subscriber  its /subscribers/:id routes (ownership is checked by handlers)
	admin       everything under /api/v1

Roles inherit: admin > subscriber > anonymous, publisher > anonymous.
A policy file at security.policy_path replaces the embedded policy.

Decisions are cached per (role, path, action) for a short TTL.
*/
package authz
