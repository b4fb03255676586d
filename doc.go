// Package credentials implements the account lifecycle of an application:
// registration, activation, login and password reset or change, on top of a
// pluggable Gateway.
//
// User lifecycle:
//   - Users are created INACTIVE by Registration and become ACTIVE through
//     Activation or a successful password reset. Operators may BLOCK and
//     unblock an account through Service.Block and Service.Unblock.
//   - UserStateMachine owns the transition graph. Hooks and ActorRef metadata
//     travel with every transition and are published to the ActivitySink.
//
// Tokens:
//   - UserToken derives tokens from the user record. Nothing is stored and a
//     token stops resolving once the password hash, email or state changes.
//   - RandomToken stores opaque random tokens through the TokenGateway and
//     deletes them when they are used.
//
// Sessions:
//   - Login keeps the logged in user in a SecretStorage. Every session read
//     is checked against the Gateway so a blocked account or a changed
//     password ends every session lazily.
//   - A derived activation token replayed after activation reports
//     AlreadyActive when it still matches the user record as it was before
//     activation. Any other token that fails to resolve is invalid.
//
// Concurrency: the library takes no locks across gateway calls. Uniqueness of
// email and username and the single use of stored tokens are enforced by the
// storage layer (unique indexes, atomic deletes).
package credentials
