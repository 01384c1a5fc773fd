// Package quorum provides the interaction-correlation and workflow-approval
// core of a community management bot.
//
// The core is built from pluggable service layers:
//
//   - correlation – routes inbound interactive events to waiting dialogs
//   - dialog      – multi-step conversational primitives over a chat surface
//   - hierarchy   – static rank table and authority resolution
//   - workflow    – two-phase submit/approve request engine
//
// Quorum is designed to be embedded in host applications. End-users
// typically interact with the core via the high-level Service façade exposed
// by the root package:
//
//	srv := quorum.New(quorum.WithTable(table), quorum.WithDirectory(dir))
//	_ = srv.Start(ctx)
//	request, _ := srv.Engine().Submit(ctx, "promotion", requester, target, "sergeant", "")
//	_, _ = srv.Engine().Approve(ctx, request.ID, approver)
//
// For more details see the README and individual sub-packages.
package quorum
