// Package authcore is the authentication and session lifecycle engine:
// password and SMS login with failure lockout, second-factor gating over
// TOTP and SMS, JWT access/refresh token pairs, and a Redis-backed
// multi-device session registry with early token revocation and a
// background sweeper.
//
// The package is built for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// authcore is the public surface. It exposes [Engine], [Builder],
// [Config], and value types such as [LoginResult] and [Identity]. User,
// role, and permission records live in an external relational store
// consumed through [UserDirectory]; SMS delivery and IP geolocation are
// external collaborators too. All rate limiting and short-lived token
// storage lives under internal/ and is never exported.
//
// # Consistency model
//
// Session records and their two secondary indices share no cross-key
// transaction. Writers use single round-trip pipelines or Lua scripts,
// readers re-check records instead of trusting index membership, and the
// [session.Sweeper] reconciles whatever a crash leaves behind.
package authcore
