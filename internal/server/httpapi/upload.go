package httpapi

import (
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/mediashare/internal/common"
	"github.com/dmitrijs2005/mediashare/internal/filex"
	"github.com/dmitrijs2005/mediashare/internal/server/media"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

// spool saves the multipart file field to the upload directory and returns
// it as a media source. A missing field yields a nil source. The returned
// cleanup removes the spooled file and must always be called.
func (s *HTTPServer) spool(c fiber.Ctx, field string) (*media.Source, func(), error) {
	noop := func() {}

	form, err := c.MultipartForm()
	if err != nil {
		return nil, noop, nil
	}
	files := form.File[field]
	if len(files) == 0 {
		return nil, noop, nil
	}
	fh := files[0]

	path := filepath.Join(s.uploadDir, uuid.NewString()+strings.ToLower(filepath.Ext(fh.Filename)))
	cleanup := func() {
		if err := filex.RemoveIfExists(path); err != nil {
			s.logger.Warn(c.Context(), "error removing spooled upload", "path", path, "error", err)
		}
	}

	if err := c.SaveFile(fh, path); err != nil {
		cleanup()
		return nil, noop, common.Wrap(common.ErrInternal, err, "error saving uploaded file")
	}

	src, err := media.FileSource(path, fh.Filename, fh.Header.Get(fiber.HeaderContentType))
	if err != nil {
		cleanup()
		return nil, noop, common.Wrap(common.ErrInternal, err, "error reading uploaded file")
	}

	return src, cleanup, nil
}
