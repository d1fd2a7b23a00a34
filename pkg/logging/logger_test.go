package logging_test

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/iota-uz/termstore/pkg/logging"
)

func TestNewLogger_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewLogger(&buf, logrus.WarnLevel)

	logger.Info("hidden")
	logger.WithField("component", "import").Warn("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "component=import")
}
