package persona

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const documentPart = "word/document.xml"

// docxText returns the raw text of a Word document. Paragraphs are
// separated by a blank line, tabs and breaks are kept.
func docxText(data []byte) (string, error) {
	archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}

	for _, f := range archive.File {
		if f.Name != documentPart {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("open %s: %w", documentPart, err)
		}
		defer rc.Close()
		return documentText(rc)
	}
	return "", errors.New("docx has no " + documentPart)
}

func documentText(r io.Reader) (string, error) {
	var (
		sb         strings.Builder
		paragraphs []string
		inText     bool
	)
	decoder := xml.NewDecoder(r)
	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("decode %s: %w", documentPart, err)
		}

		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "t":
				inText = true
			case "tab":
				sb.WriteString("\t")
			case "br", "cr":
				sb.WriteString("\n")
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "t":
				inText = false
			case "p":
				paragraphs = append(paragraphs, sb.String())
				sb.Reset()
			}
		case xml.CharData:
			if inText {
				sb.Write(el)
			}
		}
	}
	if sb.Len() > 0 {
		paragraphs = append(paragraphs, sb.String())
	}
	return strings.Join(paragraphs, "\n\n"), nil
}
