package server

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

func paramString(q url.Values, name string) (string, error) {
	v := q.Get(name)
	if v == "" {
		return "", fmt.Errorf("provide the %s GET parameter", name)
	}
	return v, nil
}

func paramInt64(q url.Values, name string) (int64, error) {
	raw, err := paramString(q, name)
	if err != nil {
		return 0, err
	}

	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s GET parameter: %v", name, err)
	}
	return v, nil
}

func paramUint32(q url.Values, name string) (uint32, error) {
	raw, err := paramString(q, name)
	if err != nil {
		return 0, err
	}

	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid %s GET parameter: %v", name, err)
	}
	return uint32(v), nil
}

func paramUint16(q url.Values, name string) (uint16, error) {
	raw, err := paramString(q, name)
	if err != nil {
		return 0, err
	}

	v, err := strconv.ParseUint(raw, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid %s GET parameter: %v", name, err)
	}
	return uint16(v), nil
}

func paramBool(q url.Values, name string) (bool, error) {
	raw, err := paramString(q, name)
	if err != nil {
		return false, err
	}

	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s GET parameter: %v", name, err)
	}
	return v, nil
}

// paramUIDList splits a comma-separated list of message UIDs.
func paramUIDList(q url.Values, name string) ([]uint32, error) {
	raw, err := paramString(q, name)
	if err != nil {
		return nil, err
	}

	parts := strings.Split(raw, ",")
	uids := make([]uint32, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseUint(strings.TrimSpace(p), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid %s GET parameter: %v", name, err)
		}
		uids = append(uids, uint32(v))
	}
	return uids, nil
}

// paramFlagList splits a comma-separated list of IMAP flag strings.
func paramFlagList(q url.Values, name string) ([]string, error) {
	raw, err := paramString(q, name)
	if err != nil {
		return nil, err
	}

	parts := strings.Split(raw, ",")
	flags := make([]string, 0, len(parts))
	for _, p := range parts {
		if f := strings.TrimSpace(p); f != "" {
			flags = append(flags, f)
		}
	}
	if len(flags) == 0 {
		return nil, fmt.Errorf("provide the %s GET parameter", name)
	}
	return flags, nil
}
