// Package gatekeeper is a role and permission administration toolkit.
//
// The root package is the client-side state engine behind the role,
// permission and user screens. A Console keeps one lifecycle store per
// entity kind, routes every request through a latest-wins coordinator, and
// pages lists either on the server or locally:
//
//	con, err := gatekeeper.NewConsole(
//	    gatekeeper.WithTransport(transport.New("http://localhost:8080/v1")),
//	)
//	if err := con.Roles.Fetch(ctx); err != nil { ... }
//	view := con.Roles.View()
//
//	ed, err := con.EditRole(ctx, roleID)
//	ed.ToggleGroup("users", true)
//	_, err = con.SaveRole(ctx, ed)
//
// The reference REST backend lives in the api, store and extension
// packages and in cmd/gatekeeperd.
package gatekeeper
