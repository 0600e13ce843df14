package skills

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// loadParagraphs reads the knowledge source into cleaned, non-empty
// paragraphs. Word documents (.docx) are read from their document part; any
// other file is treated as plain text with one paragraph per non-empty line.
func loadParagraphs(path string) ([]string, error) {
	if strings.EqualFold(filepath.Ext(path), ".docx") {
		return loadDocxParagraphs(path)
	}
	return loadTextParagraphs(path)
}

func loadTextParagraphs(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var paras []string
	for _, line := range strings.Split(string(data), "\n") {
		if t := normalizeSpace(line); t != "" {
			paras = append(paras, t)
		}
	}
	return paras, nil
}

func loadDocxParagraphs(path string) ([]string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		paras, err := parseDocumentXML(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		return paras, nil
	}
	return nil, fmt.Errorf("%s: no word/document.xml part", path)
}

// parseDocumentXML walks WordprocessingML and joins the text runs of each
// w:p element into one paragraph.
func parseDocumentXML(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)
	var paras []string
	var cur strings.Builder
	inPara := false

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				inPara = true
				cur.Reset()
			case "t":
				if inPara {
					var text string
					if err := dec.DecodeElement(&text, &t); err != nil {
						return nil, err
					}
					cur.WriteString(text)
				}
			case "tab", "br", "cr":
				if inPara {
					cur.WriteByte(' ')
				}
			}
		case xml.EndElement:
			if t.Name.Local == "p" && inPara {
				if text := normalizeSpace(cur.String()); text != "" {
					paras = append(paras, text)
				}
				inPara = false
			}
		}
	}
	return paras, nil
}
