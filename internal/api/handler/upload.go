package handler

import (
	"mime/multipart"

	"mailspot/internal/service"

	"github.com/gin-gonic/gin"
)

// ArtworkFromForm 读取表单中的 file 字段，调用方负责关闭返回的文件
func ArtworkFromForm(c *gin.Context) (service.ArtworkFile, multipart.File, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		return service.ArtworkFile{}, nil, err
	}
	f, err := fh.Open()
	if err != nil {
		return service.ArtworkFile{}, nil, err
	}
	return service.ArtworkFile{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Body:        f,
	}, f, nil
}
