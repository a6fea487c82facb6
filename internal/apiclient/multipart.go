package apiclient

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"sort"
	"strings"
)

// Upload is a file attached to a create or edit form.
type Upload struct {
	Field       string
	FileName    string
	ContentType string
	Data        []byte
}

type Multipart struct {
	Fields map[string]string
	Files  []Upload
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func (m Multipart) encode() (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)

	keys := make([]string, 0, len(m.Fields))
	for key := range m.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if err := writer.WriteField(key, m.Fields[key]); err != nil {
			return nil, "", err
		}
	}

	for _, file := range m.Files {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			quoteEscaper.Replace(file.Field), quoteEscaper.Replace(file.FileName)))
		contentType := file.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		header.Set("Content-Type", contentType)
		part, err := writer.CreatePart(header)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(file.Data); err != nil {
			return nil, "", err
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return buf, writer.FormDataContentType(), nil
}

// withUpload picks multipart when a file is attached and JSON otherwise.
func withUpload(cl call, fields map[string]string, upload *Upload) call {
	if upload == nil {
		cl.body = fields
		return cl
	}
	cl.form = &Multipart{Fields: fields, Files: []Upload{*upload}}
	return cl
}
