package common

// AuthorizationHeaderName carries the bearer access token on HTTP requests.
const AuthorizationHeaderName = "Authorization"

// BearerPrefix is the scheme prefix expected in the Authorization header.
const BearerPrefix = "Bearer "

// OTPKeyPrefix namespaces one-time codes in the secret store.
const OTPKeyPrefix = "otp:"
