package vicecontext_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ttalvitie/retrojsvice/internal/imagecompressor"
	"github.com/ttalvitie/retrojsvice/internal/vicecontext"
)

func TestParseOptionsAppliesDefaultsWhenEmpty(t *testing.T) {
	opts, err := vicecontext.ParseOptions(nil)
	require.NoError(t, err)
	require.Equal(t, imagecompressor.MaxQuality, opts.DefaultQuality)
	require.Equal(t, "127.0.0.1:8080", opts.HTTPListenAddr)
	require.Equal(t, 100, opts.HTTPMaxThreads)
	require.Empty(t, opts.HTTPAuthUser)
}

func TestParseOptionsRejectsUnknownName(t *testing.T) {
	_, err := vicecontext.ParseOptions([][2]string{{"bogus-option", "x"}})
	require.Error(t, err)
}

func TestParseOptionsRejectsEmptyValue(t *testing.T) {
	_, err := vicecontext.ParseOptions([][2]string{{"http-listen-addr", ""}})
	require.Error(t, err)
}

func TestParseOptionsDefaultQualityAcceptsPNG(t *testing.T) {
	opts, err := vicecontext.ParseOptions([][2]string{{"default-quality", "PNG"}})
	require.NoError(t, err)
	require.Equal(t, imagecompressor.MaxQuality, opts.DefaultQuality)
}

func TestParseOptionsDefaultQualityAcceptsNumericRange(t *testing.T) {
	opts, err := vicecontext.ParseOptions([][2]string{{"default-quality", "55"}})
	require.NoError(t, err)
	require.Equal(t, 55, opts.DefaultQuality)
}

func TestParseOptionsDefaultQualityRejectsOutOfRange(t *testing.T) {
	_, err := vicecontext.ParseOptions([][2]string{{"default-quality", "101"}})
	require.Error(t, err)

	_, err = vicecontext.ParseOptions([][2]string{{"default-quality", "9"}})
	require.Error(t, err)

	_, err = vicecontext.ParseOptions([][2]string{{"default-quality", "not-a-number"}})
	require.Error(t, err)
}

func TestParseOptionsHTTPMaxThreadsRejectsNonPositive(t *testing.T) {
	_, err := vicecontext.ParseOptions([][2]string{{"http-max-threads", "0"}})
	require.Error(t, err)

	_, err = vicecontext.ParseOptions([][2]string{{"http-max-threads", "-5"}})
	require.Error(t, err)
}

func TestParseOptionsHTTPAuthUserPass(t *testing.T) {
	opts, err := vicecontext.ParseOptions([][2]string{{"http-auth", "alice:secret"}})
	require.NoError(t, err)
	require.Equal(t, "alice", opts.HTTPAuthUser)
	require.Equal(t, "secret", opts.HTTPAuthPass)
}

func TestParseOptionsHTTPAuthRejectsMissingColon(t *testing.T) {
	_, err := vicecontext.ParseOptions([][2]string{{"http-auth", "nocolon"}})
	require.Error(t, err)
}

func TestParseOptionsHTTPAuthEnvReadsEnvironmentVariable(t *testing.T) {
	require.NoError(t, os.Setenv("BROWSERVICE_HTTP_AUTH_CREDENTIALS", "bob:hunter2"))
	defer os.Unsetenv("BROWSERVICE_HTTP_AUTH_CREDENTIALS")

	opts, err := vicecontext.ParseOptions([][2]string{{"http-auth", "env"}})
	require.NoError(t, err)
	require.Equal(t, "bob", opts.HTTPAuthUser)
	require.Equal(t, "hunter2", opts.HTTPAuthPass)
}

func TestParseOptionsHTTPAuthEnvUnsetYieldsNoAuth(t *testing.T) {
	require.NoError(t, os.Unsetenv("BROWSERVICE_HTTP_AUTH_CREDENTIALS"))

	opts, err := vicecontext.ParseOptions([][2]string{{"http-auth", "env"}})
	require.NoError(t, err)
	require.Empty(t, opts.HTTPAuthUser)
}

func TestParseOptionsPassesThroughDomainStackExtras(t *testing.T) {
	opts, err := vicecontext.ParseOptions([][2]string{
		{"upload-gcs-bucket", "my-bucket"},
		{"audit-db", "/tmp/audit.db"},
		{"debug-ws-addr", "127.0.0.1:9000"},
		{"http-rate-limit", "12.5"},
	})
	require.NoError(t, err)
	require.Equal(t, "my-bucket", opts.UploadGCSBucket)
	require.Equal(t, "/tmp/audit.db", opts.AuditDB)
	require.Equal(t, "127.0.0.1:9000", opts.DebugWSAddr)
	require.Equal(t, 12.5, opts.HTTPRateLimit)
}
