// Package transfer converts the ledger to and from its portable JSON document.
package transfer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"moneymanager/internal/core"
)

// TypeAutoBackup marks documents written by the daily backup.
const TypeAutoBackup = "auto-backup"

// Document is the export file layout.
type Document struct {
	Transactions []core.Transaction `json:"transactions"`
	Categories   core.Categories    `json:"categories,omitempty"`
	ExportedAt   time.Time          `json:"exportedAt"`
	Type         string             `json:"type,omitempty"`
}

// Export snapshots the ledger into a document stamped with now.
func Export(txs []core.Transaction, cats core.Categories, now time.Time) Document {
	if txs == nil {
		txs = []core.Transaction{}
	}
	return Document{Transactions: txs, Categories: cats, ExportedAt: now.UTC()}
}

// Backup is Export tagged as an automatic backup.
func Backup(txs []core.Transaction, cats core.Categories, now time.Time) Document {
	doc := Export(txs, cats, now)
	doc.Type = TypeAutoBackup
	return doc
}

// Filename is the suggested download name for an export made on now.
func Filename(now time.Time) string {
	return "money_manager_" + core.DateOf(now).String() + ".json"
}

// Encode writes doc as indented JSON.
func Encode(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode export: %w", err)
	}
	return nil
}

// Marshal is Encode into a byte slice.
func Marshal(doc Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type wireDocument struct {
	Transactions *[]json.RawMessage `json:"transactions"`
	Categories   core.Categories    `json:"categories"`
	ExportedAt   time.Time          `json:"exportedAt"`
	Type         string             `json:"type"`
}

// Decode reads a document. Malformed JSON, a missing transactions array or
// an undecodable record fail with core.ErrMalformedImport. Records are not
// validated here; the store does that on replace.
func Decode(r io.Reader) (Document, error) {
	var wire wireDocument
	if err := json.NewDecoder(r).Decode(&wire); err != nil {
		return Document{}, fmt.Errorf("%w: %v", core.ErrMalformedImport, err)
	}
	if wire.Transactions == nil {
		return Document{}, fmt.Errorf("%w: missing transactions array", core.ErrMalformedImport)
	}

	txs := make([]core.Transaction, 0, len(*wire.Transactions))
	for i, raw := range *wire.Transactions {
		var tx core.Transaction
		if err := json.Unmarshal(raw, &tx); err != nil {
			return Document{}, fmt.Errorf("%w: transaction %d: %v", core.ErrMalformedImport, i, err)
		}
		txs = append(txs, tx)
	}
	return Document{
		Transactions: txs,
		Categories:   wire.Categories,
		ExportedAt:   wire.ExportedAt,
		Type:         wire.Type,
	}, nil
}
