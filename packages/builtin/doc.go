// Package builtin provides the closed registry of generator functions
// available to variable bindings.
//
// Functions are grouped into feature modules that testsets opt into via
// their requires list:
//   - random: random_string(length), random_int(min, max), uuid()
//   - hash: md5(parts...), sha256(parts...), hmac_sha256(key, message)
//   - encode: base64(value), base64_decode(value), url_encode(value), url_decode(value)
//   - time: timestamp(), timestamp_ms(), now(), date(layout)
//
// A small core module (env, concat, upper, lower) is always loaded.
// Callers may add their own functions through the explicit Register API;
// there is no evaluation of arbitrary source text.
package builtin
