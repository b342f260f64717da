package sl

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/hackers-pub/hackerspub-sub003/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestSetup_MasksSecretsInsideGroups(t *testing.T) {
	var buf bytes.Buffer

	log := Setup(EnvDev, &buf, Options{MaskSecrets: true})

	token := models.SignupToken{
		Email:   "alice@example.com",
		Token:   uuid.New(),
		Code:    "c0deVALUE00",
		Created: time.Now(),
	}

	log.Debug("issued signup token", slog.Any("token", token))

	out := buf.String()
	assert.Contains(t, out, "alice@example.com")
	assert.Contains(t, out, redacted)
	assert.NotContains(t, out, "c0deVALUE00")
}

func TestSetup_RevealsSecretsWhenMaskingDisabled(t *testing.T) {
	var buf bytes.Buffer

	log := Setup(EnvLocal, &buf, Options{MaskSecrets: false})
	log.Debug("issued", slog.String("code", "c0deVALUE00"))

	assert.Contains(t, buf.String(), "c0deVALUE00")
}

func TestSetup_ProdSkipsDebug(t *testing.T) {
	var buf bytes.Buffer

	log := Setup(EnvProd, &buf, Options{})
	log.Debug("hidden")
	log.Info("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestErr(t *testing.T) {
	attr := Err(errors.New("boom"))

	assert.Equal(t, "error", attr.Key)
	assert.Equal(t, "boom", attr.Value.String())
}
