package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/fxamacker/cbor/v2"
)

// cborEncMode keeps sub-second timestamps so exports round-trip exactly.
var cborEncMode = func() cbor.EncMode {
	mode, err := cbor.EncOptions{Time: cbor.TimeRFC3339Nano}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("cbor encode mode: %v", err))
	}
	return mode
}()

// Write encodes env to w in the requested format.
func Write(w io.Writer, env *Envelope, format Format) error {
	switch format {
	case FormatJSON, "":
		return WriteJSON(w, env)
	case FormatCBOR:
		return WriteCBOR(w, env)
	case FormatCSV:
		return WriteCSV(w, env)
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
}

func WriteJSON(w io.Writer, env *Envelope) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(env); err != nil {
		return fmt.Errorf("encode json export: %w", err)
	}
	return nil
}

func ReadJSON(r io.Reader) (*Envelope, error) {
	var env Envelope
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode json export: %w", err)
	}
	return &env, nil
}

// MarshalCBOR encodes env as a CBOR map. This is also the signed payload.
func MarshalCBOR(env *Envelope) ([]byte, error) {
	data, err := cborEncMode.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode cbor export: %w", err)
	}
	return data, nil
}

func UnmarshalCBOR(data []byte) (*Envelope, error) {
	var env Envelope
	if err := cbor.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode cbor export: %w", err)
	}
	return &env, nil
}

func WriteCBOR(w io.Writer, env *Envelope) error {
	data, err := MarshalCBOR(env)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func ReadCBOR(r io.Reader) (*Envelope, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read cbor export: %w", err)
	}
	return UnmarshalCBOR(data)
}

// ReadEnvelope decodes a JSON or CBOR export, detected from the first byte.
func ReadEnvelope(data []byte) (*Envelope, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return ReadJSON(bytes.NewReader(trimmed))
	}
	return UnmarshalCBOR(data)
}

// csvHeader mirrors the round-record schema.
var csvHeader = []string{"bidder", "bidder_name", "round", "bid", "user", "clicked", "balance"}

// WriteCSV writes one row per record. Absent bids and clicks are empty cells.
func WriteCSV(w io.Writer, env *Envelope) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, record := range env.Records {
		bid := ""
		if record.Bid != nil {
			bid = strconv.FormatFloat(*record.Bid, 'f', -1, 64)
		}
		clicked := ""
		if record.Clicked != nil {
			clicked = strconv.FormatBool(*record.Clicked)
		}

		row := []string{
			strconv.Itoa(record.Bidder),
			record.BidderName,
			strconv.Itoa(record.Round),
			bid,
			strconv.Itoa(int(record.User)),
			clicked,
			strconv.FormatFloat(record.Balance, 'f', -1, 64),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write csv row for round %d: %w", record.Round, err)
		}
	}

	writer.Flush()
	return writer.Error()
}
