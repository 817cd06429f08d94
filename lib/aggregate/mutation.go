package aggregate

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ValentinKolb/dCommerce/lib/doc"
)

// MutationType names a read-modify-write operation on a single document.
type MutationType string

const (
	MutAddCartLines    MutationType = "add_cart_lines"
	MutUpdateCartLines MutationType = "update_cart_lines"
	MutRemoveCartLines MutationType = "remove_cart_lines"
	MutApplyDiscount   MutationType = "apply_discount"
	MutAppendLedger    MutationType = "append_ledger"
	MutSetFields       MutationType = "set_fields"
	MutTransition      MutationType = "transition"
)

// ErrNoTransition is returned by a transition whose target value is already set.
var ErrNoTransition = errors.New("field already holds the target value")

// Mutation is a serializable compound update. A store applies it to one document
// while holding that document exclusively (a lock in the local store, one log
// entry in the replicated store), so the derived fields never diverge from their sources.
type Mutation struct {
	Type         MutationType `json:"type"`
	Lines        []CartLine   `json:"lines,omitempty"`
	LineIDs      []string     `json:"line_ids,omitempty"`
	DiscountCode string       `json:"discount_code,omitempty"`
	Entry        doc.Document `json:"entry,omitempty"`
	EntryPrefix  string       `json:"entry_prefix,omitempty"`
	Fields       doc.Document `json:"fields,omitempty"`
}

// Mutation factories

func AddLines(lines ...CartLine) Mutation {
	return Mutation{Type: MutAddCartLines, Lines: lines}
}

func UpdateLines(lines ...CartLine) Mutation {
	return Mutation{Type: MutUpdateCartLines, Lines: lines}
}

func RemoveLines(ids ...string) Mutation {
	return Mutation{Type: MutRemoveCartLines, LineIDs: ids}
}

func ApplyCode(code string) Mutation {
	return Mutation{Type: MutApplyDiscount, DiscountCode: code}
}

func Ledger(entry doc.Document) Mutation {
	return Mutation{Type: MutAppendLedger, Entry: entry}
}

// NumberedLedger appends entry like Ledger. An entry without id gets the next free
// <prefix><nnn> id of the card, derived while the card is held.
func NumberedLedger(prefix string, entry doc.Document) Mutation {
	return Mutation{Type: MutAppendLedger, Entry: entry, EntryPrefix: prefix}
}

func SetFields(fields doc.Document) Mutation {
	return Mutation{Type: MutSetFields, Fields: fields}
}

// Transition sets field to value. It fails with ErrNoTransition if the field already
// holds value, so of two concurrent transitions only the first succeeds.
func Transition(field string, value doc.Value) Mutation {
	return Mutation{Type: MutTransition, Fields: doc.Document{field: value}}
}

// Apply runs the mutation against target. target is modified in place; on error it
// may be partially modified and must be discarded by the caller.
// Managed fields (id and timestamps) are never touched.
func (m Mutation) Apply(target doc.Document) error {
	switch m.Type {
	case MutAddCartLines:
		AddCartLines(target, m.Lines)
	case MutUpdateCartLines:
		UpdateCartLines(target, m.Lines)
	case MutRemoveCartLines:
		RemoveCartLines(target, m.LineIDs)
	case MutApplyDiscount:
		if _, err := ApplyDiscount(target, m.DiscountCode); err != nil {
			return err
		}
	case MutAppendLedger:
		entry := m.Entry
		if _, has := entry.ID(); !has && entry != nil && m.EntryPrefix != "" {
			entry = entry.Clone()
			entry[doc.FieldID] = doc.Str(NextEntryID(target, m.EntryPrefix))
		}
		return AppendLedger(target, entry)
	case MutSetFields:
		target.Merge(m.Fields, doc.FieldID, doc.FieldCreatedAt, doc.FieldModifiedAt)
	case MutTransition:
		for field, value := range m.Fields {
			if current, ok := target.Get(field); ok && current.Equal(value) {
				return fmt.Errorf("%w: %s is already %s", ErrNoTransition, field, value.Text())
			}
		}
		target.Merge(m.Fields, doc.FieldID, doc.FieldCreatedAt, doc.FieldModifiedAt)
	default:
		return fmt.Errorf("unknown mutation type %q", m.Type)
	}
	return nil
}

// Encode returns the JSON form of the mutation.
func (m Mutation) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// DecodeMutation parses the JSON form of a mutation.
func DecodeMutation(data []byte) (Mutation, error) {
	var m Mutation
	if err := json.Unmarshal(data, &m); err != nil {
		return Mutation{}, fmt.Errorf("decode mutation: %w", err)
	}
	return m, nil
}
