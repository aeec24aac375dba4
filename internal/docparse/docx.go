package docparse

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// readDOCX pulls paragraph text out of the word/document.xml part.
//
// Paragraphs anywhere in the body are collected, table cells included
// (requirement docs frequently keep the actual requirements in tables).
// Tabs and explicit line breaks inside runs are preserved.
func readDOCX(path string) (string, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	defer archive.Close()

	for _, file := range archive.File {
		if file.Name != "word/document.xml" {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return "", fmt.Errorf("open docx document part: %w", err)
		}
		defer rc.Close()
		return paragraphText(rc)
	}

	return "", fmt.Errorf("docx has no word/document.xml part")
}

// paragraphText walks the WordprocessingML token stream, joining each
// paragraph's text runs and separating paragraphs with newlines.
func paragraphText(r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)

	var paragraphs []string
	var current strings.Builder
	inParagraph := false
	inText := false
	inTabStops := false // <w:tabs> holds tab stop definitions, not content

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("decode docx xml: %w", err)
		}

		switch t := token.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				inParagraph = true
				current.Reset()
			case "t":
				inText = true
			case "tabs":
				inTabStops = true
			case "tab":
				if inParagraph && !inTabStops {
					current.WriteByte('\t')
				}
			case "br", "cr":
				if inParagraph {
					current.WriteByte('\n')
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "p":
				if inParagraph {
					paragraphs = append(paragraphs, current.String())
					inParagraph = false
				}
			case "t":
				inText = false
			case "tabs":
				inTabStops = false
			}
		case xml.CharData:
			if inParagraph && inText {
				current.Write(t)
			}
		}
	}

	return strings.Join(paragraphs, "\n"), nil
}
