package common

// AuthorizationHeader is the HTTP header carrying the bearer access token.
const AuthorizationHeader = "Authorization"

// BearerPrefix prefixes the access token in the Authorization header.
const BearerPrefix = "Bearer "

// IfMatchHeader carries the client's last known server version token on
// mutating requests. A mismatch means the entity changed remotely.
const IfMatchHeader = "If-Match"

// ETagHeader carries the server-assigned version token on responses.
const ETagHeader = "ETag"
