package exports

import (
	"bytes"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"time"

	"reflexledger/integrations/archive"
)

// EventsCSV builds a CSV export of archived ledger events and returns the
// serialised data alongside a SHA-256 checksum of the payload. Attributes are
// written as a JSON object so the column set is the same for every type.
func EventsCSV(records []archive.Record) ([]byte, string, error) {
	buffer := &bytes.Buffer{}
	writer := csv.NewWriter(buffer)
	header := []string{"seq", "type", "recorded_at", "attributes"}
	if err := writer.Write(header); err != nil {
		return nil, "", err
	}
	for _, rec := range records {
		attributes, err := json.Marshal(attributesOf(rec))
		if err != nil {
			return nil, "", err
		}
		record := []string{
			strconv.FormatInt(rec.Seq, 10),
			rec.Type,
			rec.RecordedAt.UTC().Format(time.RFC3339Nano),
			string(attributes),
		}
		if err := writer.Write(record); err != nil {
			return nil, "", err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, "", err
	}
	data := buffer.Bytes()
	return data, checksum(data), nil
}

// EventsJSONL builds a JSON Lines export of archived ledger events and
// returns the payload alongside a checksum.
func EventsJSONL(records []archive.Record) ([]byte, string, error) {
	buffer := &bytes.Buffer{}
	encoder := json.NewEncoder(buffer)
	encoder.SetEscapeHTML(false)
	for _, rec := range records {
		payload := map[string]interface{}{
			"seq":         rec.Seq,
			"type":        rec.Type,
			"recorded_at": rec.RecordedAt.UTC().Format(time.RFC3339Nano),
			"attributes":  attributesOf(rec),
		}
		if err := encoder.Encode(payload); err != nil {
			return nil, "", err
		}
	}
	data := buffer.Bytes()
	return data, checksum(data), nil
}

func attributesOf(rec archive.Record) map[string]string {
	if rec.Attributes == nil {
		return map[string]string{}
	}
	return rec.Attributes
}

func checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
