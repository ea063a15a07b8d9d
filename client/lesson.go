package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"github.com/pkg/errors"

	"github.com/mrembo/urembo/core/lesson"
)

// Lessons fetches every published lesson.
func (c *Client) Lessons(ctx context.Context) ([]lesson.Lesson, error) {
	var lessons []lesson.Lesson
	if err := c.getJSON(ctx, "/api/lesson/all", &lessons); err != nil {
		return nil, err
	}
	return lessons, nil
}

func (c *Client) Lesson(ctx context.Context, id int) (lesson.Lesson, error) {
	var les lesson.Lesson
	if err := c.getJSON(ctx, fmt.Sprintf("/api/lesson/get/%d", id), &les); err != nil {
		return lesson.Lesson{}, err
	}
	return les, nil
}

// CreateLesson uploads a new lesson with its files as multipart form data
// (admin only). Optional uploads may be nil.
func (c *Client) CreateLesson(ctx context.Context, nl lesson.NewLesson) (lesson.Lesson, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	if err := mw.WriteField("name", nl.Name); err != nil {
		return lesson.Lesson{}, errors.Wrap(err, "writing name field")
	}
	uploads := []struct {
		field  string
		upload *lesson.FileUpload
	}{
		{"thumbnail_image", nl.ThumbnailImage},
		{"theory_file", nl.TheoryFile},
		{"practical_file", nl.PracticalFile},
		{"consultation_sheet", nl.ConsultationSheet},
	}
	for _, u := range uploads {
		if u.upload == nil {
			continue
		}
		if err := writeFilePart(mw, u.field, u.upload); err != nil {
			return lesson.Lesson{}, err
		}
	}
	if err := mw.Close(); err != nil {
		return lesson.Lesson{}, errors.Wrap(err, "closing multipart body")
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/lesson/create", &body, mw.FormDataContentType())
	if err != nil {
		return lesson.Lesson{}, err
	}
	var les lesson.Lesson
	if err := c.do(req, &les); err != nil {
		return lesson.Lesson{}, err
	}
	return les, nil
}

func (c *Client) DeleteLesson(ctx context.Context, id int) error {
	req, err := c.newRequest(ctx, http.MethodDelete, fmt.Sprintf("/api/lesson/delete/%d", id), nil, "")
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

// DownloadMedia streams a stored lesson file into w.
func (c *Client) DownloadMedia(ctx context.Context, path string, w io.Writer) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/media/"+path, nil, "")
	if err != nil {
		return err
	}
	res, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "sending request")
	}
	defer res.Body.Close() // nolint:errcheck

	if res.StatusCode >= http.StatusBadRequest {
		return decodeAPIError(res)
	}
	_, err = io.Copy(w, res.Body)
	return errors.Wrap(err, "downloading file")
}

func writeFilePart(mw *multipart.Writer, field string, upload *lesson.FileUpload) error {
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, upload.Filename))
	hdr.Set("Content-Type", upload.ContentType)

	part, err := mw.CreatePart(hdr)
	if err != nil {
		return errors.Wrapf(err, "creating part %q", field)
	}
	if _, err = io.Copy(part, upload.Content); err != nil {
		return errors.Wrapf(err, "writing part %q", field)
	}
	return nil
}
