/*
Package authsdk keeps a lab API client logged in.

# Overview

The package has two layers:

  - SDKClient: stateless calls to the auth service (login, register,
    refresh, logout). Every request carries the x-api-key header.
  - Manager: one session. It owns the token pair, the decoded user, the
    lifecycle state and a recurring refresh timer.

The access token only lives in memory. The refresh token is persisted through
a Storage so the next process can recover the session:

	client := authsdk.NewSDKClient("https://auth.example.com")
	client.APIKey = os.Getenv("LABRES_API_KEY")

	m := authsdk.NewManager(client, storage)
	defer m.Close()

	ok, err := m.InitAuth(ctx) // recovers from the stored refresh token
	if !ok {
		_, err = m.Login(ctx, authsdk.LoginRequest{Username: u, Password: p})
	}

# Refresh

Tokens are exchanged in three situations: once during InitAuth, every
refresh interval while authenticated, and when a request sent through
Manager.Transport comes back 401. All three share a single in-flight
exchange; callers that arrive while one is running wait for its result.

A failed exchange ends the session. The exception is recovery: a network
failure during InitAuth leaves the stored token in place.

# Transport

Manager.Transport wraps an http.RoundTripper. It sets the bearer token,
and on a 401 refreshes once and replays the request once. The replay's own
401 is returned unchanged, and requests to the refresh endpoint are never
intercepted.

	api := &http.Client{Transport: m.Transport(http.DefaultTransport)}

# Thread Safety

Manager is safe for concurrent use. Reads of the token pair go through a
read lock and always see both tokens from the same exchange.
*/
package authsdk
