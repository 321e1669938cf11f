// Package devmode holds the credentials shared by the SDK, the CLI and the
// fake backend when running locally.
package devmode

// APIKey is accepted by storynest-fakeapi when STORYNEST_FAKEAPI_REQUIRE_AUTH
// is set. Never use it against a real backend.
const APIKey = "LOCAL_DEV_MODE_NOT_FOR_PRODUCTION"
