/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package settings

import (
	"encoding/json"
	"fmt"
)

// Values persist as {"name": {"<kind>": payload}}, one tagged object per parameter.

func encodeValue(v Value) (json.RawMessage, error) {
	var payload any
	switch x := v.(type) {
	case Boolean:
		payload = bool(x)
	case String:
		payload = string(x)
	case Options:
		payload = string(x)
	case Number:
		payload = float64(x)
	case NumberRange:
		payload = float64(x)
	case Color:
		payload = [4]float32(x)
	case Image:
		// []byte encodes as base64, nil as null.
		payload = x.Data
	default:
		return nil, fmt.Errorf("cannot encode settings value %T", v)
	}
	return json.Marshal(map[string]any{v.Kind().String(): payload})
}

func decodeValue(raw json.RawMessage) (Value, error) {
	var tagged map[string]json.RawMessage
	if err := json.Unmarshal(raw, &tagged); err != nil {
		return nil, fmt.Errorf("settings value: %w", err)
	}
	if len(tagged) != 1 {
		return nil, fmt.Errorf("settings value must have exactly one kind, got %d", len(tagged))
	}
	for name, payload := range tagged {
		kind, err := ParseKind(name)
		if err != nil {
			return nil, err
		}
		switch kind {
		case KindBoolean:
			var b bool
			err = json.Unmarshal(payload, &b)
			return Boolean(b), err
		case KindString:
			var s string
			err = json.Unmarshal(payload, &s)
			return String(s), err
		case KindOptions:
			var s string
			err = json.Unmarshal(payload, &s)
			return Options(s), err
		case KindNumber:
			var f float64
			err = json.Unmarshal(payload, &f)
			return Number(f), err
		case KindNumberRange:
			var f float64
			err = json.Unmarshal(payload, &f)
			return NumberRange(f), err
		case KindColor:
			var c [4]float32
			err = json.Unmarshal(payload, &c)
			return Color(c), err
		case KindImage:
			var b []byte
			err = json.Unmarshal(payload, &b)
			return Image{Data: b}, err
		}
	}
	return nil, fmt.Errorf("unreachable settings kind")
}

// MarshalJSON encodes each value in its tagged form; keys come out sorted.
func (vs Values) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(vs))
	for name, v := range vs {
		raw, err := encodeValue(v)
		if err != nil {
			return nil, fmt.Errorf("setting %q: %w", name, err)
		}
		out[name] = raw
	}
	return json.Marshal(out)
}

func (vs *Values) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	out := make(Values, len(raw))
	for name, r := range raw {
		v, err := decodeValue(r)
		if err != nil {
			return fmt.Errorf("setting %q: %w", name, err)
		}
		out[name] = v
	}
	*vs = out
	return nil
}
