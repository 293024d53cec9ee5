package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/keyquest/wa-gateway/domains/message"
	"github.com/keyquest/wa-gateway/engine"
	"github.com/keyquest/wa-gateway/eventbus"
	"github.com/keyquest/wa-gateway/integrations/webhook"
	"github.com/keyquest/wa-gateway/pkg/clock"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rateEnv(clk clock.Clock) *engine.Env {
	return &engine.Env{
		Sender: &scriptedSender{},
		Clock:  clk,
		Events: eventbus.NewBus(),
		Log:    logrus.WithField("test", true),
	}
}

func rateMessage(id string) message.Message {
	return message.Message{
		WaMessageID: id,
		ChatID:      "rates@g.us",
		SenderID:    "6590000001@c.us",
		Body:        "Rate Package Update: DBS 2.6% fixed 2y",
		Timestamp:   time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
	}
}

func TestRateUpdateForwardsOncePerWindow(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	clk := clock.NewFakeClock(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	env := rateEnv(clk)
	h := NewRateUpdateHandler("rate_package_update", webhook.NewForwarder(srv.URL, ""))

	require.NoError(t, h.Handle(context.Background(), env, rateMessage("r1")))
	require.NoError(t, h.Handle(context.Background(), env, rateMessage("r1")))
	assert.Equal(t, int64(1), hits.Load(), "duplicate within window must not redeliver")

	clk.Advance(11 * time.Minute)
	require.NoError(t, h.Handle(context.Background(), env, rateMessage("r1")))
	assert.Equal(t, int64(2), hits.Load(), "expired window allows redelivery")

	require.NoError(t, h.Handle(context.Background(), env, rateMessage("r2")))
	assert.Equal(t, int64(3), hits.Load())
}

func TestRateUpdateSignsBody(t *testing.T) {
	const secret = "topsecret"
	var gotSig string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get("X-Webhook-Signature")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	clk := clock.NewFakeClock(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	h := NewRateUpdateHandler("update_bank_rates", webhook.NewForwarder(srv.URL, secret))

	require.NoError(t, h.Handle(context.Background(), rateEnv(clk), rateMessage("r1")))

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(gotBody)
	assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), gotSig)
	assert.Contains(t, string(gotBody), `"event":"update_bank_rates"`)
	assert.Contains(t, string(gotBody), `"wa_message_id":"r1"`)
}

func TestRateUpdateUnconfiguredIsNoop(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	h := NewRateUpdateHandler("interest_rate_update", webhook.NewForwarder("", ""))
	assert.NoError(t, h.Handle(context.Background(), rateEnv(clk), rateMessage("r1")))
}

func TestRateUpdateSurfacesDeliveryFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	clk := clock.NewFakeClock(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	h := NewRateUpdateHandler("rate_package_update", webhook.NewForwarder(srv.URL, ""))
	assert.Error(t, h.Handle(context.Background(), rateEnv(clk), rateMessage("r1")))
}
