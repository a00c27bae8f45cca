// Package identity keeps a client's view of "who is signed in" consistent
// across a server-rendered session hand-off, the hosted identity provider,
// the application-owned profile record, and the provider's asynchronous
// change stream.
//
// Store lifecycle:
//   - Store holds the {user, session, profile, loading} tuple and publishes
//     every change to read-only subscribers. Construct it with New, run the
//     one-time bootstrap with Start, and release the change subscription
//     with Close. Continuations that settle after Close never write state.
//   - Bootstrap reconciles an optional server-supplied session: the session
//     is pushed into the token store and confirmed with a bounded readiness
//     poll before the profile read, since that read may be access-controlled
//     by the live session and would otherwise return no rows.
//
// Profile resolution:
//   - Profile reads race a fixed deadline; whichever settles first wins and
//     the loser's result is discarded. Transient failures (timeout, network)
//     keep the last known profile so a flaky connection never blanks a
//     verified user's state; every other failure clears it.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter describing bootstrap,
//     sign-in, sign-out, and profile refresh transitions. Sinks run
//     best-effort (errors are logged) so you can forward to a database or
//     queue without blocking the session flow.
package identity
