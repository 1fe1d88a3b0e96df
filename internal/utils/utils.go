package utils

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	log "github.com/sirupsen/logrus"
)

var Log = logrus.New()

func SetLogLevel(level string) {
	// We are not using logrus' trace and panic levels
	switch strings.ToLower(level) {
	case "debug":
		Log.SetLevel(log.DebugLevel)
	case "info":
		Log.SetLevel(log.InfoLevel)
	case "warning", "warn":
		Log.SetLevel(log.WarnLevel)
	case "error":
		Log.SetLevel(log.ErrorLevel)
	case "fatal":
		Log.SetLevel(log.FatalLevel)
	default:
		log.Fatal("Bad error level string")
	}
}

// EncodeDataURL wraps raw bytes in a base64 data URL with the given MIME type.
func EncodeDataURL(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURL extracts the raw bytes from a base64 data URL. A bare base64
// string with no "data:...," prefix is accepted too, since that's what some
// clients send.
func DecodeDataURL(s string) ([]byte, error) {
	if idx := strings.Index(s, ","); idx >= 0 {
		s = s[idx+1:]
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("invalid base64 image payload: %w", err)
	}
	return raw, nil
}
