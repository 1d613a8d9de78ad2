// Package log provides secure logging built on the standard slog package.
//
// The SecureHandler wraps any slog.Handler and sanitizes records before
// they reach it:
//   - attributes whose key names a credential (authorization, token, ...)
//     are replaced with MaskValue
//   - GitHub tokens and bearer credentials are masked wherever they appear
//     in a string value or in the message
//   - phone numbers, national ID numbers and e-mail addresses taken from
//     report bodies are redacted the same way the published dataset
//     redacts them
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	logger.Info("request sent", "authorization", "Bearer ghp_...") // masked
//	slog.SetDefault(logger)
package log
