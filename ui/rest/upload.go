package rest

import (
	"io"

	"github.com/gofiber/fiber/v2"
	"github.com/keyquest/wa-gateway/integrations/imagekit"
	pkgError "github.com/keyquest/wa-gateway/pkg/error"
	"github.com/keyquest/wa-gateway/pkg/utils"
)

type Upload struct {
	Client *imagekit.Client
}

func InitRestUpload(app fiber.Router, client *imagekit.Client) Upload {
	rest := Upload{Client: client}
	app.Post("/api/upload/image", rest.UploadImage)
	return rest
}

func (controller *Upload) UploadImage(c *fiber.Ctx) error {
	if controller.Client == nil || !controller.Client.Configured() {
		utils.PanicIfNeeded(pkgError.ServiceUnavailableError("image upload is not configured"))
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		utils.PanicIfNeeded(pkgError.ValidationError("image field is required"))
	}
	if fileHeader.Size > imagekit.MaxUploadBytes {
		utils.PanicIfNeeded(pkgError.ValidationError("file exceeds the 5MB limit"))
	}

	file, err := fileHeader.Open()
	utils.PanicIfNeeded(err)
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, imagekit.MaxUploadBytes+1))
	utils.PanicIfNeeded(err)

	result, err := controller.Client.Upload(c.UserContext(), fileHeader.Filename, data)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Success: true,
		Data:    result,
	})
}
