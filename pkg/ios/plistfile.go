package ios

import (
	"fmt"
	"os"

	"howett.net/plist"
)

// plistFile is a property list held in memory until the post-build writes it
type plistFile struct {
	path   string
	format int
	root   map[string]interface{}
}

func readPlist(path string) (*plistFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	root := map[string]interface{}{}
	format, err := plist.Unmarshal(data, &root)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &plistFile{path: path, format: format, root: root}, nil
}

// readPlistOrEmpty loads path, or starts an empty XML plist when it is missing
func readPlistOrEmpty(path string) (*plistFile, error) {
	f, err := readPlist(path)
	if os.IsNotExist(err) {
		return &plistFile{path: path, format: plist.XMLFormat, root: map[string]interface{}{}}, nil
	}
	return f, err
}

func (f *plistFile) bytes() ([]byte, error) {
	format := f.format
	if format != plist.XMLFormat && format != plist.BinaryFormat {
		format = plist.XMLFormat
	}
	return plist.MarshalIndent(f.root, format, "\t")
}

func (f *plistFile) stringValue(key string) (string, bool) {
	v, ok := f.root[key]
	if !ok {
		return "", false
	}
	if s, ok := v.(string); ok {
		return s, true
	}
	return fmt.Sprint(v), true
}

func (f *plistFile) array(key string) []interface{} {
	arr, _ := f.root[key].([]interface{})
	return arr
}

// appendUnique adds values missing from the string array at key, keeping order
func (f *plistFile) appendUnique(key string, values ...string) {
	arr := f.array(key)
	seen := make(map[string]bool, len(arr))
	for _, v := range arr {
		if s, ok := v.(string); ok {
			seen[s] = true
		}
	}
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		arr = append(arr, v)
	}
	if arr == nil {
		arr = []interface{}{}
	}
	f.root[key] = arr
}
