// Package protocol implements SSO packet framing.
//
// # Frame Layout
//
// Every frame on the wire starts with a 4-byte big-endian length that counts
// itself. Outbound frames then carry:
//
//   - request type (0x0C D2Auth, 0x0D Simple)
//   - encrypt type (0 none, 1 D2 key, 2 empty key)
//   - the D2 ticket for D2Auth, or the sequence for Simple
//   - a zero byte and the length-prefixed decimal uin
//   - the SSO frame, sealed with TEA unless the encrypt type is none
//
// The SSO frame holds a head (sequence, sub app id, locale, A2 ticket,
// command, guid, client version, reserve fields) and the body. Inbound heads
// carry the sequence, return code, extra string, command, and a compression
// flag instead.
//
// # Signing
//
// Commands on the signer's allow-list get a {sign, token, extra} bundle in the
// head's reserve fields. Signing failures never block a send.
//
// # Errors
//
// Malformed frames and missing key material are reported as *ProtocolError.
// A non-zero return code is not an error at this layer; the dispatcher turns
// it into a *ServiceError.
package protocol
