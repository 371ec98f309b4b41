package report

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
	"github.com/veraison/go-cose"

	"github.com/cloudx-io/clickauction/core"
	"github.com/cloudx-io/clickauction/strategy"
)

// newTestEnvelope runs the always-click scenario: A at 0.5 beats B at 0.3.
func newTestEnvelope(t *testing.T, rounds int) *Envelope {
	t.Helper()
	user, err := core.NewUser(0, 1.0)
	assert.NoError(t, err)

	bidders := []core.Bidder{strategy.NewFixedBidder(0.5), strategy.NewFixedBidder(0.3)}
	auction, err := core.NewAuction([]*core.User{user}, bidders, core.Options{Rand: core.NewSeededRandSource(1)})
	assert.NoError(t, err)

	_, err = auction.Run(rounds)
	assert.NoError(t, err)
	return NewEnvelope(auction, 1, core.UncontestedZero)
}

func TestNewEnvelope(t *testing.T) {
	env := newTestEnvelope(t, 3)

	check.Equal(t, 3, env.Rounds)
	check.Equal(t, 1, env.Users)
	check.Equal(t, []string{"fixed-0.50", "fixed-0.30"}, env.Bidders)
	check.Equal(t, "zero", env.UncontestedPolicy)
	check.Equal(t, 6, len(env.Records))
	check.Equal(t, core.ComputeHistoryHash(env.Records), env.HistoryHash)
	check.NotEqual(t, [16]byte{}, [16]byte(env.SimulationID))
}

func TestJSONExport_RoundTrip(t *testing.T) {
	env := newTestEnvelope(t, 2)

	var buf bytes.Buffer
	assert.NoError(t, Write(&buf, env, FormatJSON))

	decoded, err := ReadEnvelope(buf.Bytes())
	assert.NoError(t, err)

	check.Equal(t, env.SimulationID, decoded.SimulationID)
	check.Equal(t, env.Records, decoded.Records)
	check.Equal(t, env.HistoryHash, core.ComputeHistoryHash(decoded.Records))
}

func TestCBORExport_RoundTrip(t *testing.T) {
	env := newTestEnvelope(t, 2)

	var buf bytes.Buffer
	assert.NoError(t, Write(&buf, env, FormatCBOR))

	decoded, err := ReadEnvelope(buf.Bytes())
	assert.NoError(t, err)

	check.Equal(t, env.SimulationID, decoded.SimulationID)
	check.True(t, env.CreatedAt.Equal(decoded.CreatedAt))
	check.Equal(t, env.Records, decoded.Records)
	check.Nil(t, decoded.Records[1].Clicked) // Loser has no click outcome
}

func TestWriteCSV(t *testing.T) {
	env := newTestEnvelope(t, 2)
	env.Records[1].Bid = nil

	var buf bytes.Buffer
	assert.NoError(t, Write(&buf, env, FormatCSV))

	rows, err := csv.NewReader(&buf).ReadAll()
	assert.NoError(t, err)

	check.Equal(t, 5, len(rows))
	check.Equal(t, csvHeader, rows[0])
	check.Equal(t, []string{"0", "fixed-0.50", "1", "0.5", "0", "true", "0.7"}, rows[1])
	check.Equal(t, []string{"1", "fixed-0.30", "1", "", "0", "", "0"}, rows[2])
	check.Equal(t, "1.4", rows[3][6])
}

func TestWrite_UnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	check.Error(t, Write(&buf, newTestEnvelope(t, 1), Format("xml")))
}

func TestBalanceSeries(t *testing.T) {
	env := newTestEnvelope(t, 3)

	series := BalanceSeries(env.Records)

	assert.Equal(t, 2, len(series))
	check.Equal(t, "fixed-0.50", series[0].Name)
	check.Equal(t, []float64{0.7, 1.4, 2.1}, series[0].Balances)
	check.Equal(t, 3, series[0].Wins)
	check.Equal(t, []float64{0, 0, 0}, series[1].Balances)
	check.Equal(t, 0, series[1].Wins)
}

func TestRenderChart(t *testing.T) {
	env := newTestEnvelope(t, 3)

	var buf bytes.Buffer
	assert.NoError(t, RenderChart(&buf, env.Records))
	out := buf.String()

	check.True(t, strings.Contains(out, "Round"))
	check.True(t, strings.Contains(out, "fixed-0.50"))
	check.True(t, strings.Contains(out, "$2.10"))
	check.True(t, strings.Contains(out, "fixed-0.50: wins=3 final=$2.10 min=$0.70 max=$2.10"))
	check.True(t, strings.Contains(out, "fixed-0.30: wins=0 final=$0.00"))
}

func TestRenderChart_Empty(t *testing.T) {
	var buf bytes.Buffer
	assert.NoError(t, RenderChart(&buf, nil))
	check.Equal(t, "no rounds recorded\n", buf.String())
}

func TestFormatCurrency(t *testing.T) {
	tests := []struct {
		value    float64
		expected string
	}{
		{0, "$0.00"},
		{0.7, "$0.70"},
		{-0.3, "-$0.30"},
		{1234.5, "$1,234.50"},
		{-1234567.891, "-$1,234,567.89"},
		{999.999, "$1,000.00"},
		{-0.001, "$0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			check.Equal(t, tt.expected, FormatCurrency(tt.value))
		})
	}
}

func TestSigner_SignVerifies(t *testing.T) {
	signer, err := NewSigner()
	assert.NoError(t, err)
	env := newTestEnvelope(t, 2)

	signed, err := signer.Sign(env)
	assert.NoError(t, err)

	var msg cose.Sign1Message
	assert.NoError(t, msg.UnmarshalCBOR(signed))

	verifier, err := cose.NewVerifier(cose.AlgorithmES256, signer.PublicKey)
	assert.NoError(t, err)
	check.NoError(t, msg.Verify(nil, verifier))

	decoded, err := UnmarshalCBOR(msg.Payload)
	assert.NoError(t, err)
	check.Equal(t, env.HistoryHash, decoded.HistoryHash)
}

func TestSigner_PublicKeyPEMRoundTrip(t *testing.T) {
	signer, err := NewSigner()
	assert.NoError(t, err)

	pemText, err := signer.PublicKeyPEM()
	assert.NoError(t, err)
	check.True(t, strings.HasPrefix(pemText, "-----BEGIN PUBLIC KEY-----"))

	key, err := ParsePublicKeyPEM([]byte(pemText))
	assert.NoError(t, err)
	check.True(t, key.Equal(signer.PublicKey))

	_, err = ParsePublicKeyPEM([]byte("not a key"))
	check.Error(t, err)
}
