package vicecontext

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ttalvitie/retrojsvice/internal/imagecompressor"
)

const httpAuthEnvVar = "BROWSERVICE_HTTP_AUTH_CREDENTIALS"

// Options holds the validated result of parsing the name/value option pairs
// the host passes to Init, matching the table in spec.md §6 plus
// SPEC_FULL.md's additions.
type Options struct {
	DefaultQuality int

	HTTPListenAddr string
	HTTPMaxThreads int
	HTTPAuthUser   string
	HTTPAuthPass   string

	UploadGCSBucket string
	AuditDB         string
	DebugWSAddr     string
	HTTPRateLimit   float64
}

// DefaultOptions mirrors the default column of spec.md §6's option table.
func DefaultOptions() Options {
	return Options{
		DefaultQuality: imagecompressor.MaxQuality,
		HTTPListenAddr: "127.0.0.1:8080",
		HTTPMaxThreads: 100,
	}
}

// ParseOptions validates a (name, value) option list as supplied across the
// C ABI boundary, matching Context::init's validation loop: an unknown name
// or an empty value is an error string, never a panic (option errors are
// caller mistakes, not programming errors).
func ParseOptions(pairs [][2]string) (Options, error) {
	opts := DefaultOptions()

	for _, pair := range pairs {
		name, value := pair[0], pair[1]
		if value == "" {
			return Options{}, fmt.Errorf("invalid value '' for option '%s'", name)
		}

		switch name {
		case "default-quality":
			q, err := parseQuality(value)
			if err != nil {
				return Options{}, err
			}
			opts.DefaultQuality = q
		case "http-listen-addr":
			opts.HTTPListenAddr = value
		case "http-max-threads":
			n, err := strconv.Atoi(value)
			if err != nil || n <= 0 {
				return Options{}, fmt.Errorf("invalid value '%s' for option 'http-max-threads'", value)
			}
			opts.HTTPMaxThreads = n
		case "http-auth":
			user, pass, err := parseHTTPAuth(value)
			if err != nil {
				return Options{}, err
			}
			opts.HTTPAuthUser, opts.HTTPAuthPass = user, pass
		case "upload-gcs-bucket":
			opts.UploadGCSBucket = value
		case "audit-db":
			opts.AuditDB = value
		case "debug-ws-addr":
			opts.DebugWSAddr = value
		case "http-rate-limit":
			r, err := strconv.ParseFloat(value, 64)
			if err != nil || r < 0 {
				return Options{}, fmt.Errorf("invalid value '%s' for option 'http-rate-limit'", value)
			}
			opts.HTTPRateLimit = r
		default:
			return Options{}, fmt.Errorf("unknown option '%s'", name)
		}
	}

	return opts, nil
}

func parseQuality(value string) (int, error) {
	if strings.EqualFold(value, "PNG") {
		return imagecompressor.MaxQuality, nil
	}
	q, err := strconv.Atoi(value)
	if err != nil || q < imagecompressor.MinQuality || q > imagecompressor.MaxQuality-1 {
		return 0, fmt.Errorf("invalid value '%s' for option 'default-quality'", value)
	}
	return q, nil
}

// parseHTTPAuth implements the three accepted forms: empty (already
// rejected above by the empty-value check, so this only sees nonempty
// values here), "env" (read BROWSERVICE_HTTP_AUTH_CREDENTIALS), or
// "USER:PASSWORD".
func parseHTTPAuth(value string) (user, pass string, err error) {
	if value == "env" {
		value = os.Getenv(httpAuthEnvVar)
		if value == "" {
			return "", "", nil
		}
	}
	user, pass, ok := strings.Cut(value, ":")
	if !ok {
		return "", "", fmt.Errorf("invalid value for option 'http-auth': expected USER:PASSWORD")
	}
	return user, pass, nil
}
