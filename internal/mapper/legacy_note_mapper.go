package mapper

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"notebook-sync-be/internal/entity"
	"notebook-sync-be/internal/model"
)

type LegacyNoteMapper struct{}

func NewLegacyNoteMapper() *LegacyNoteMapper {
	return &LegacyNoteMapper{}
}

// ToEntity decodes the embedded rows leniently. Only a JSON array yields
// rows; any other non-null value is left out and flagged in RowsIgnored.
func (m *LegacyNoteMapper) ToEntity(n *model.LegacyNote) *entity.LegacyNote {
	if n == nil {
		return nil
	}

	rows, ignored := decodeLegacyRows(n.Rows)
	return &entity.LegacyNote{
		Id:          n.Id,
		UserId:      n.UserId,
		Title:       n.Title,
		Rows:        rows,
		RowsIgnored: ignored,
		CreatedAt:   n.CreatedAt,
		UpdatedAt:   n.UpdatedAt,
	}
}

func (m *LegacyNoteMapper) ToModel(n *entity.LegacyNote) (*model.LegacyNote, error) {
	if n == nil {
		return nil, nil
	}

	raw, err := json.Marshal(n.Rows)
	if err != nil {
		return nil, err
	}

	return &model.LegacyNote{
		Id:        n.Id,
		UserId:    n.UserId,
		Title:     n.Title,
		Rows:      raw,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}, nil
}

func decodeLegacyRows(raw []byte) ([]entity.LegacyRow, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return nil, false
	}

	var items []json.RawMessage
	if trimmed[0] != '[' || json.Unmarshal(trimmed, &items) != nil {
		return nil, true
	}

	rows := make([]entity.LegacyRow, 0, len(items))
	for _, item := range items {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(item, &fields); err != nil || fields == nil {
			// Not an object: keep the slot so later rows keep their index.
			rows = append(rows, entity.LegacyRow{})
			continue
		}
		rows = append(rows, entity.LegacyRow{
			Id:    legacyText(fields["id"]),
			Key:   legacyText(fields["key"]),
			Value: legacyText(fields["value"]),
			Order: legacyOrder(fields["order"]),
		})
	}
	return rows, false
}

// legacyText reads strings as they are and numbers and true in their JSON
// form. Missing, false and other values read as empty.
func legacyText(raw json.RawMessage) string {
	var v interface{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if len(raw) == 0 || dec.Decode(&v) != nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		if t {
			return "true"
		}
	}
	return ""
}

// legacyOrder accepts numbers and numeric strings, dropping any fraction.
func legacyOrder(raw json.RawMessage) *int {
	var v interface{}
	if len(raw) == 0 || json.Unmarshal(raw, &v) != nil {
		return nil
	}

	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	order := int(f)
	return &order
}
