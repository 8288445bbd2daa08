// Package tempmail provides a Go client for disposable mail.tm mailboxes.
//
// A [Client] owns at most one current [Session]: a provisioned mailbox, the
// bearer token issued for it and a fixed expiry. While auto-refresh is on,
// the inbox is polled on an interval and new messages are merged into a
// local store that keeps read and deleted state across polls.
//
// Basic usage:
//
//	client, err := tempmail.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	session, err := client.CreateSession(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println("Address:", session.Address)
//
//	msg, err := client.WaitForMessage(ctx, tempmail.WithSubject("Welcome"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println("From:", msg.From)
//
// Creating a new session replaces the current one. Polling for the old
// session stops first, and any fetch still on the wire for it is discarded.
//
// Changes are published as [Event] values through [Client.Events] and
// [Client.OnEvent].
//
// # Error Handling
//
// Failures are reported as typed errors that match the sentinel values
// with [errors.Is]:
//
//	_, err := client.CreateSession(ctx)
//	switch {
//	case errors.Is(err, tempmail.ErrProvisioningFailed):
//	    // account creation rejected; the previous session is still current
//	case errors.Is(err, tempmail.ErrAuthFailed):
//	    // token issuance rejected
//	case errors.Is(err, tempmail.ErrNetworkFailure):
//	    // transport error or timeout, safe to try again
//	}
//
// A credential rejected while polling stops auto-refresh and emits
// [EventCredentialRejected]; call [Client.Reauthenticate] to resume.
package tempmail
