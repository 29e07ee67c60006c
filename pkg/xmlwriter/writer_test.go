package xmlwriter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBytes_DependenciesLayout(t *testing.T) {
	doc := etree.NewDocument()
	doc.CreateComment("generated")
	deps := doc.CreateElement("dependencies")
	pkgs := deps.CreateElement("androidPackages")
	pkgs.CreateElement("androidPackage").CreateAttr("spec", "a:b:1")
	pkgs.CreateElement("androidPackage").CreateAttr("spec", "c:d:2")

	out, err := Bytes(doc, DefaultOptions())
	require.NoError(t, err)

	want := "\xEF\xBB\xBF" + `<?xml version="1.0" encoding="utf-8"?>
<!--generated-->
<dependencies>
	<androidPackages>
		<androidPackage
			spec="a:b:1" />
		<androidPackage
			spec="c:d:2" />
	</androidPackages>
</dependencies>`
	assert.Equal(t, want, string(out))
}

func TestBytes_EmptyElementAndNamespaces(t *testing.T) {
	doc := etree.NewDocument()
	root := doc.CreateElement("manifest")
	root.CreateAttr("xmlns:android", "http://schemas.android.com/apk/res/android")
	root.CreateAttr("package", "com.example")
	root.CreateElement("application")
	perm := root.CreateElement("uses-permission")
	perm.CreateAttr("android:name", "android.permission.CAMERA")

	out, err := Bytes(doc, Options{NewLineOnAttributes: true, Encoding: "UTF-8"})
	require.NoError(t, err)

	want := `<?xml version="1.0" encoding="UTF-8"?>
<manifest
	xmlns:android="http://schemas.android.com/apk/res/android"
	package="com.example">
	<application />
	<uses-permission
		android:name="android.permission.CAMERA" />
</manifest>`
	assert.Equal(t, want, string(out))
}

func TestBytes_InlineAttributesAndEscaping(t *testing.T) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0"`)
	root := doc.CreateElement("root")
	root.CreateAttr("q", `a "b" & <c>`)
	root.CreateElement("text").SetText("x < y & z")

	out, err := Bytes(doc, Options{})
	require.NoError(t, err)

	want := `<?xml version="1.0" encoding="utf-8"?>
<root q="a &quot;b&quot; &amp; &lt;c&gt;">
	<text>x &lt; y &amp; z</text>
</root>`
	assert.Equal(t, want, string(out))
}

func TestBytes_Idempotent(t *testing.T) {
	build := func() *etree.Document {
		doc := etree.NewDocument()
		r := doc.CreateElement("a")
		r.CreateElement("b").CreateAttr("k", "v")
		return doc
	}

	first, err := Bytes(build(), DefaultOptions())
	require.NoError(t, err)
	second, err := Bytes(build(), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestWriteFile(t *testing.T) {
	doc := etree.NewDocument()
	doc.CreateElement("x")

	path := filepath.Join(t.TempDir(), "nested", "dir", "out.xml")
	require.NoError(t, WriteFile(path, doc, DefaultOptions()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xEF, 0xBB, 0xBF}, data[:3])
	assert.Contains(t, string(data), "<x />")
}
