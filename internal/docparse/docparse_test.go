package docparse

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestFile(t *testing.T, name string, data []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func writeTestDOCX(t *testing.T, documentXML string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "requirements.docx")
	f, err := os.Create(path)
	require.NoError(t, err)

	zw := zip.NewWriter(f)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(documentXML))
	require.NoError(t, err)

	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return path
}

func TestExtract_TXT(t *testing.T) {
	path := writeTestFile(t, "requirements.txt", []byte("Product A\nFeature: login\n"))

	text, err := Extract(path)
	require.NoError(t, err)
	assert.Equal(t, "Product A\nFeature: login\n", text)
}

func TestExtract_TXT_InvalidUTF8(t *testing.T) {
	raw := []byte{'o', 'k', 0xff, 0xfe, '!'}
	path := writeTestFile(t, "notes.txt", raw)

	text, err := Extract(path)
	require.NoError(t, err)
	assert.Equal(t, string(raw), text)
}

func TestExtract_DOCX(t *testing.T) {
	const documentXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:r><w:t>Project Alpha requirements</w:t></w:r></w:p>
<w:p><w:pPr><w:tabs><w:tab w:val="left" w:pos="720"/></w:tabs></w:pPr><w:r><w:t>Feature:</w:t></w:r><w:r><w:tab/><w:t>SSO login</w:t></w:r></w:p>
<w:p/>
<w:tbl><w:tr><w:tc><w:p><w:r><w:t>User export</w:t></w:r></w:p></w:tc></w:tr></w:tbl>
</w:body>
</w:document>`

	path := writeTestDOCX(t, documentXML)

	text, err := Extract(path)
	require.NoError(t, err)

	// Tab stop definitions contribute nothing; the run-level tab does.
	// The empty paragraph survives as a blank line and the table cell
	// paragraph is included.
	assert.Equal(t, "Project Alpha requirements\nFeature:\tSSO login\n\nUser export", text)
}

func TestExtract_DOCX_LineBreaks(t *testing.T) {
	const documentXML = `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body><w:p><w:r><w:t>line one</w:t><w:br/><w:t>line two</w:t></w:r></w:p></w:body>
</w:document>`

	path := writeTestDOCX(t, documentXML)

	text, err := Extract(path)
	require.NoError(t, err)
	assert.Equal(t, "line one\nline two", text)
}

func TestExtract_DOCX_NotAZip(t *testing.T) {
	path := writeTestFile(t, "fake.docx", []byte("just text"))

	_, err := Extract(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open docx")
}

func TestExtract_DOCX_MissingDocumentPart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.docx")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	_, err = zw.Create("word/styles.xml")
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	_, err = Extract(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "word/document.xml")
}

func TestExtract_PDF_Corrupt(t *testing.T) {
	path := writeTestFile(t, "broken.pdf", []byte("not a pdf"))

	_, err := Extract(path)
	assert.Error(t, err)
}

func TestExtract_UnknownExtensionReadsRaw(t *testing.T) {
	path := writeTestFile(t, "legacy.doc", []byte("old format, still mostly text"))

	text, err := Extract(path)
	require.NoError(t, err)
	assert.Equal(t, "old format, still mostly text", text)
}

func TestExtract_NoExtensionReadsRaw(t *testing.T) {
	path := writeTestFile(t, "README", []byte("plain"))

	text, err := Extract(path)
	require.NoError(t, err)
	assert.Equal(t, "plain", text)
}

func TestExtract_MissingFile(t *testing.T) {
	_, err := Extract(filepath.Join(t.TempDir(), "absent.txt"))
	assert.Error(t, err)
}
