package keyboard

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Common virtual-key codes.
const (
	VKLButton  Key = 0x01
	VKRButton  Key = 0x02
	VKBack     Key = 0x08
	VKTab      Key = 0x09
	VKReturn   Key = 0x0D
	VKShift    Key = 0x10
	VKControl  Key = 0x11
	VKMenu     Key = 0x12
	VKPause    Key = 0x13
	VKCapital  Key = 0x14
	VKEscape   Key = 0x1B
	VKSpace    Key = 0x20
	VKPrior    Key = 0x21
	VKNext     Key = 0x22
	VKEnd      Key = 0x23
	VKHome     Key = 0x24
	VKLeft     Key = 0x25
	VKUp       Key = 0x26
	VKRight    Key = 0x27
	VKDown     Key = 0x28
	VKInsert   Key = 0x2D
	VKDelete   Key = 0x2E
	VKNumpad0  Key = 0x60
	VKMultiply Key = 0x6A
	VKAdd      Key = 0x6B
	VKSubtract Key = 0x6D
	VKDecimal  Key = 0x6E
	VKDivide   Key = 0x6F
	VKF1       Key = 0x70
	VKLShift   Key = 0xA0
	VKRShift   Key = 0xA1
	VKLControl Key = 0xA2
	VKRControl Key = 0xA3
	VKLMenu    Key = 0xA4
	VKRMenu    Key = 0xA5
	VKOEMPlus  Key = 0xBB
	VKOEMMinus Key = 0xBD
)

var keyNames = map[string]Key{
	"VK_LBUTTON":   VKLButton,
	"VK_RBUTTON":   VKRButton,
	"VK_BACK":      VKBack,
	"VK_TAB":       VKTab,
	"VK_RETURN":    VKReturn,
	"VK_SHIFT":     VKShift,
	"VK_CONTROL":   VKControl,
	"VK_MENU":      VKMenu,
	"VK_PAUSE":     VKPause,
	"VK_CAPITAL":   VKCapital,
	"VK_ESCAPE":    VKEscape,
	"VK_SPACE":     VKSpace,
	"VK_PRIOR":     VKPrior,
	"VK_NEXT":      VKNext,
	"VK_END":       VKEnd,
	"VK_HOME":      VKHome,
	"VK_LEFT":      VKLeft,
	"VK_UP":        VKUp,
	"VK_RIGHT":     VKRight,
	"VK_DOWN":      VKDown,
	"VK_INSERT":    VKInsert,
	"VK_DELETE":    VKDelete,
	"VK_MULTIPLY":  VKMultiply,
	"VK_ADD":       VKAdd,
	"VK_SUBTRACT":  VKSubtract,
	"VK_DECIMAL":   VKDecimal,
	"VK_DIVIDE":    VKDivide,
	"VK_LSHIFT":    VKLShift,
	"VK_RSHIFT":    VKRShift,
	"VK_LCONTROL":  VKLControl,
	"VK_RCONTROL":  VKRControl,
	"VK_LMENU":     VKLMenu,
	"VK_RMENU":     VKRMenu,
	"VK_OEM_PLUS":  VKOEMPlus,
	"VK_OEM_MINUS": VKOEMMinus,
}

var keyLabels map[Key]string

func init() {
	for c := '0'; c <= '9'; c++ {
		keyNames["VK_"+string(c)] = Key(c)
		keyNames["VK_NUMPAD"+string(c)] = VKNumpad0 + Key(c-'0')
	}
	for c := 'A'; c <= 'Z'; c++ {
		keyNames["VK_"+string(c)] = Key(c)
	}
	for i := 0; i < 24; i++ {
		keyNames[fmt.Sprintf("VK_F%d", i+1)] = VKF1 + Key(i)
	}

	keyLabels = make(map[Key]string, len(keyNames))
	for name, k := range keyNames {
		keyLabels[k] = name
	}
}

// ParseKey resolves a key from a VK_ name (the prefix is optional, case is
// ignored) or from a decimal or 0x-prefixed hexadecimal code.
func ParseKey(s string) (Key, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("keyboard: empty key name")
	}

	if n, err := strconv.ParseUint(s, 0, 16); err == nil {
		k := Key(n)
		if !k.Valid() {
			return 0, fmt.Errorf("%w: %d", ErrKeyOutOfRange, n)
		}
		return k, nil
	}

	name := strings.ToUpper(s)
	if !strings.HasPrefix(name, "VK_") {
		name = "VK_" + name
	}
	if k, ok := keyNames[name]; ok {
		return k, nil
	}
	return 0, fmt.Errorf("keyboard: unknown key %q", s)
}

// String returns the VK_ name of k, or its hexadecimal code.
func (k Key) String() string {
	if name, ok := keyLabels[k]; ok {
		return name
	}
	return fmt.Sprintf("0x%02X", uint16(k))
}

// KeyNames returns every known key name, sorted.
func KeyNames() []string {
	names := make([]string, 0, len(keyNames))
	for name := range keyNames {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
