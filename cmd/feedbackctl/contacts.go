package main

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/feedbackapp/feedback-server/internal/service"
)

// parseContacts reads contacts from JSON (an array, or an object with a
// "contacts" array) or CSV with a header row. CSV columns are matched by
// name: id, name, email, organization, tags. Tags are separated by ";".
func parseContacts(r io.Reader, filename string) ([]service.ContactInput, error) {
	if strings.EqualFold(filepath.Ext(filename), ".csv") {
		return parseContactsCSV(r)
	}
	return parseContactsJSON(r)
}

func parseContactsJSON(r io.Reader) ([]service.ContactInput, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var list []service.ContactInput
	if err := json.Unmarshal(data, &list); err == nil {
		return list, nil
	}

	var wrapped service.ImportContactsRequest
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("decode contacts JSON: %w", err)
	}
	return wrapped.Contacts, nil
}

func parseContactsCSV(r io.Reader) ([]service.ContactInput, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("contacts CSV is empty")
		}
		return nil, err
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := cols["email"]; !ok {
		return nil, errors.New(`contacts CSV needs an "email" column`)
	}

	field := func(rec []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var contacts []service.ContactInput
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		var tags []string
		for _, t := range strings.Split(field(rec, "tags"), ";") {
			if t = strings.TrimSpace(t); t != "" {
				tags = append(tags, t)
			}
		}

		contacts = append(contacts, service.ContactInput{
			ID:           field(rec, "id"),
			Name:         field(rec, "name"),
			Email:        field(rec, "email"),
			Organization: field(rec, "organization"),
			Tags:         tags,
		})
	}
	return contacts, nil
}
