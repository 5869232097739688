package config

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"gopkg.in/yaml.v3"

	"timewarp/internal/keyboard"
)

// Key is a virtual-key code that decodes from either a number or a VK_ name
// and encodes as the name.
type Key keyboard.Key

// VK returns the keyboard key.
func (k Key) VK() keyboard.Key { return keyboard.Key(k) }

func (k Key) String() string { return keyboard.Key(k).String() }

// MarshalText encodes the key by name.
func (k Key) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Key) parse(s string) error {
	vk, err := keyboard.ParseKey(s)
	if err != nil {
		return err
	}
	*k = Key(vk)
	return nil
}

// UnmarshalJSON accepts 17 or "VK_CONTROL".
func (k *Key) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch v := v.(type) {
	case string:
		return k.parse(v)
	case float64:
		return k.fromNumber(v)
	default:
		return fmt.Errorf("key must be a number or a name, got %s", data)
	}
}

// UnmarshalTOML accepts 17 or "VK_CONTROL".
func (k *Key) UnmarshalTOML(v any) error {
	switch v := v.(type) {
	case string:
		return k.parse(v)
	case int64:
		return k.fromNumber(float64(v))
	default:
		return fmt.Errorf("key must be a number or a name, got %T", v)
	}
}

// UnmarshalYAML accepts 17 or VK_CONTROL.
func (k *Key) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: key must be a scalar", node.Line)
	}
	if err := k.parse(node.Value); err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	return nil
}

func (k *Key) fromNumber(f float64) error {
	if f < 0 || f >= keyboard.NumKeys || f != math.Trunc(f) {
		return fmt.Errorf("%w: %v", keyboard.ErrKeyOutOfRange, f)
	}
	*k = Key(f)
	return nil
}

// Keys converts to keyboard keys.
func Keys(keys []Key) []keyboard.Key {
	out := make([]keyboard.Key, len(keys))
	for i, k := range keys {
		out[i] = k.VK()
	}
	return out
}

// Duration is a time.Duration written as "250ms" or "5s".
type Duration time.Duration

// Std returns the time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}
