package docx

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// documentPart is the WordprocessingML part holding the document body.
const documentPart = "word/document.xml"

// ExtractText reads a DOCX document and returns the visible paragraph text,
// trimmed and concatenated with newlines. Empty paragraphs are skipped.
//
// A DOCX file is a ZIP archive; the paragraph text lives in the <w:t> runs of
// each <w:p> element of word/document.xml. Tables and embedded objects are not
// traversed.
func ExtractText(r io.ReaderAt, size int64) (string, error) {
	archive, err := zip.NewReader(r, size)
	if err != nil {
		return "", fmt.Errorf("failed to open document archive: %w", err)
	}

	var part *zip.File
	for _, f := range archive.File {
		if f.Name == documentPart {
			part = f
			break
		}
	}
	if part == nil {
		return "", fmt.Errorf("document has no %s part", documentPart)
	}

	rc, err := part.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", documentPart, err)
	}
	defer rc.Close()

	paragraphs, err := extractParagraphs(rc)
	if err != nil {
		return "", fmt.Errorf("failed to parse %s: %w", documentPart, err)
	}

	return strings.Join(paragraphs, "\n"), nil
}

// extractParagraphs walks the XML token stream collecting the text runs of
// each paragraph.
func extractParagraphs(r io.Reader) ([]string, error) {
	decoder := xml.NewDecoder(r)

	var paragraphs []string
	var current strings.Builder
	inText := false

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := token.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				text := strings.TrimSpace(current.String())
				if text != "" {
					paragraphs = append(paragraphs, text)
				}
				current.Reset()
			}
		case xml.CharData:
			if inText {
				current.Write(t)
			}
		}
	}

	return paragraphs, nil
}
