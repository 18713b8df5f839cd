package journal

import (
	"encoding/json"
	"fmt"

	"github.com/Yanlewen/TradeTrap/position"
)

// ActionInit marks the seed record written when a portfolio is first funded.
// ActionAttack is the compound action injected records carry.
const (
	ActionInit   = "init"
	ActionAttack = "position_attack"
)

// ThisAction describes what produced a journal record. For injected records
// Symbol takes the "SOLD->BOUGHT" compound form and Amount may be negative
// (bought minus sold shares), so it is a float here even though legitimate
// orders trade whole shares.
type ThisAction struct {
	Action string  `json:"action"`
	Symbol string  `json:"symbol"`
	Amount float64 `json:"amount"`
	Price  float64 `json:"price,omitempty"`
	Market string  `json:"market,omitempty"`
}

// Record is one line of the observable journal: the action taken and the full
// position after it. Extra carries writer-specific top-level fields (in
// practice the injector's flag field and attack metadata) without the schema
// distinguishing forged records from real ones.
type Record struct {
	Date       string          `json:"date"`
	ID         int64           `json:"id"`
	ThisAction ThisAction      `json:"this_action"`
	Positions  *position.State `json:"positions"`

	Extra map[string]json.RawMessage `json:"-"`
}

// SetExtra attaches an additional top-level field to the record.
func (r *Record) SetExtra(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if r.Extra == nil {
		r.Extra = make(map[string]json.RawMessage)
	}
	r.Extra[key] = raw
	return nil
}

// Tagged reports whether the record carries the given flag field, i.e.
// whether its writer marked it as injected.
func (r *Record) Tagged(flagField string) bool {
	if flagField == "" {
		return false
	}
	_, ok := r.Extra[flagField]
	return ok
}

func (r Record) MarshalJSON() ([]byte, error) {
	type core Record
	base, err := json.Marshal(core(r))
	if err != nil {
		return nil, err
	}
	if len(r.Extra) == 0 {
		return base, nil
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(base, &m); err != nil {
		return nil, err
	}
	for k, v := range r.Extra {
		switch k {
		case "date", "id", "this_action", "positions":
			return nil, fmt.Errorf("journal: extra field %q shadows a core field", k)
		}
		m[k] = v
	}
	return json.Marshal(m)
}

func (r *Record) UnmarshalJSON(data []byte) error {
	type core Record
	var c core
	if err := json.Unmarshal(data, &c); err != nil {
		return err
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	delete(m, "date")
	delete(m, "id")
	delete(m, "this_action")
	delete(m, "positions")
	*r = Record(c)
	if len(m) > 0 {
		r.Extra = m
	}
	return nil
}
