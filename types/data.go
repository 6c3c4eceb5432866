package types

import (
	"encoding/json"
	"sort"

	"github.com/juju/errors"
	"github.com/spf13/cast"
	"github.com/warriorguo/dagflow/utils"
)

// Data maps a node name (or a seeded key) to the value it produced.
type Data map[string]any

func (d Data) Get(key string) (any, bool) {
	v, exists := d[key]
	return v, exists
}

func (d Data) GetString(key string) (string, bool) {
	v, exists := d.Get(key)
	return cast.ToString(v), exists
}

func (d Data) GetInt(key string) (int, bool) {
	v, exists := d.Get(key)
	return cast.ToInt(v), exists
}

func (d Data) GetBool(key string) (bool, bool) {
	v, exists := d.Get(key)
	return cast.ToBool(v), exists
}

func (d Data) GetFloat64(key string) (float64, bool) {
	v, exists := d.Get(key)
	return cast.ToFloat64(v), exists
}

func (d Data) GetStruct(key string, s any) error {
	v, exists := d.Get(key)
	if !exists {
		return errors.NotFoundf("key: %s", key)
	}
	return DecodeStruct(v, s)
}

// Keys returns the keys sorted, so callers iterating Data stay deterministic.
func (d Data) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (d Data) Clone() Data {
	return utils.CloneMap(d)
}

// DecodeStruct copies v into s through a JSON round trip.
func DecodeStruct(v any, s any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return errors.Annotatef(err, "marshal failed")
	}
	return errors.Trace(json.Unmarshal(b, s))
}

func (d Data) Set(key string, value any) {
	d[key] = value
}
