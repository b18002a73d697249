package recipient

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/postroom/postroom/internal/store"
)

// ImportResult aggregates one CSV import.
type ImportResult struct {
	Success int      `json:"success"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}

// ImportCSV reads recipients from CSV data with an "email,company" header
// (company optional). Existing addresses are reported as failures rather
// than overwritten; one bad row never aborts the import.
func (s *Service) ImportCSV(ctx context.Context, r io.Reader) (*ImportResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("recipient: failed to read CSV header: %w", err)
	}

	emailCol, companyCol := -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "email":
			emailCol = i
		case "company":
			companyCol = i
		}
	}
	if emailCol < 0 {
		return nil, errors.New("recipient: CSV has no email column")
	}

	result := &ImportResult{}
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("malformed row: %s", err))
			continue
		}
		if emailCol >= len(row) {
			result.Failed++
			result.Errors = append(result.Errors, "malformed row: missing email column")
			continue
		}

		email := row[emailCol]
		company := ""
		if companyCol >= 0 && companyCol < len(row) {
			company = row[companyCol]
		}

		if err := s.importOne(ctx, email, company); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, err.Error())
			continue
		}
		result.Success++
	}

	return result, nil
}

func (s *Service) importOne(ctx context.Context, email, company string) error {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return err
	}

	if _, err := s.recipients.GetRecipientByEmail(ctx, normalized); err == nil {
		return fmt.Errorf("%s already exists", normalized)
	} else if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("error importing %s: %w", normalized, err)
	}

	if _, err := s.recipients.CreateRecipient(ctx, normalized, strings.TrimSpace(company)); err != nil {
		return fmt.Errorf("error importing %s: %w", normalized, err)
	}
	return nil
}
