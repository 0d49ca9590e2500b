// Package managehub provides hierarchical role-based access control with
// multisig governance.
//
// ManageHub manages a three-level role hierarchy (Guest < Member < Admin),
// an orthogonal subscription-tier axis, per-account blacklisting, and an
// optional external membership policy. Administrative control runs in one
// of two modes: a single stored admin with a two-step transfer protocol, or
// a multisig committee where every privileged change flows through a
// proposal with threshold approval, risk classification, time-locks, expiry
// and rejection quorums.
//
// # Core Concepts
//
// Role: a position in the total-order hierarchy. A role grants every
// capability of the roles below it, so checks compare with >=.
//
// Tier: an independent subscription level (Free < Basic < Pro < Enterprise).
// Combined checks require both axes, short-circuiting on the role.
//
// Proposal: one in-flight governance vote. Its risk classification selects
// the approval threshold (standard, critical or emergency) and whether a
// time-lock applies; the threshold is snapshotted at creation so later
// committee changes cannot alter a running vote.
//
// # Key Features
//
//   - Single-writer atomicity: every operation is one store transaction
//   - Two storage backends: in-memory for tests, PostgreSQL via dbkit
//   - Proposal lifecycle: auto-approval, immediate execution on threshold,
//     lazy expiry cleanup, rejection quorum max(1, n/3)
//   - Audit trail written in the same transaction as each change
//   - Post-commit notifications for observers
//   - HTTP middleware for role and tier gating
//
// # Basic Usage
//
//	// 1. Create the service over a store
//	db, _ := dbkit.New(dbkit.Config{URL: cfg.DatabaseURL})
//	service := managehub.New(managehub.NewDatabaseStore(db))
//
//	// 2. Run migrations
//	dbkit.Migrate(ctx, db, managehub.NewMigrationService(service).Migrations())
//
//	// 3. Initialize a committee
//	err := service.InitializeMultiSig(ctx, []string{"alice", "bob", "carol"}, 2, nil)
//
//	// 4. Govern through proposals
//	id, _ := service.CreateProposal(ctx, "alice", managehub.SetRoleAction("dave", managehub.RoleMember))
//	_ = service.ApproveProposal(ctx, "bob", id)
//
//	// 5. Check access
//	ok, _ := service.CheckAccess(ctx, "dave", managehub.RoleMember)
package managehub
