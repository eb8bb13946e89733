package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/example/farmfresh/internal/errutil"
	"github.com/example/farmfresh/internal/models"
	"github.com/example/farmfresh/internal/services"
)

// PictureField is the multipart field carrying a profile picture.
const PictureField = "profilePicture"

// AuthHandler serves registration and login.
type AuthHandler struct {
	auth *services.AuthService
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(auth *services.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type registerRequest struct {
	UserType       string  `json:"userType" form:"userType"`
	FirstName      string  `json:"firstName" form:"firstName"`
	LastName       string  `json:"lastName" form:"lastName"`
	Email          string  `json:"email" form:"email"`
	Phone          string  `json:"phone" form:"phone"`
	Address        string  `json:"address" form:"address"`
	Bio            string  `json:"bio" form:"bio"`
	Password       string  `json:"password" form:"password"`
	ProfilePicture string  `json:"profilePicture" form:"-"`
	FarmName       string  `json:"farmName" form:"farmName"`
	Specialization string  `json:"specialization" form:"specialization"`
	FarmSize       float64 `json:"farmSize" form:"farmSize"`
	FarmSizeUnit   string  `json:"farmSizeUnit" form:"farmSizeUnit"`
}

func (r registerRequest) input() services.RegisterInput {
	return services.RegisterInput{
		UserType:       models.Role(strings.TrimSpace(r.UserType)),
		FirstName:      r.FirstName,
		LastName:       r.LastName,
		Email:          r.Email,
		Phone:          r.Phone,
		Address:        r.Address,
		Bio:            r.Bio,
		Password:       r.Password,
		ProfilePicture: r.ProfilePicture,
		FarmName:       r.FarmName,
		Specialization: models.Specialization(r.Specialization),
		FarmSize:       r.FarmSize,
		FarmSizeUnit:   models.FarmSizeUnit(r.FarmSizeUnit),
	}
}

// authData is the payload of register and login responses.
type authData struct {
	models.UserView
	Token string `json:"token"`
}

func newAuthData(res *services.AuthResult) authData {
	return authData{UserView: res.User.View(), Token: res.Token}
}

// Register creates an account from a JSON or multipart body.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody()
	}

	picture, done, err := formPicture(c)
	if err != nil {
		return err
	}
	defer done()

	res, err := h.auth.Register(c.UserContext(), req.input(), picture)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusCreated, newAuthData(res), "User registered successfully")
}

type loginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// Login exchanges credentials for a session token.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody()
	}

	res, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, newAuthData(res), "Login successful")
}

func isMultipart(c *fiber.Ctx) bool {
	return strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEMultipartForm)
}

// formPicture opens the uploaded picture of a multipart request. It returns a
// nil picture when none was sent; done must always be called.
func formPicture(c *fiber.Ctx) (*services.Picture, func(), error) {
	noop := func() {}
	if !isMultipart(c) {
		return nil, noop, nil
	}

	form, err := c.MultipartForm()
	if err != nil {
		return nil, noop, badBody()
	}
	files := form.File[PictureField]
	if len(files) == 0 {
		return nil, noop, nil
	}

	fh := files[0]
	f, err := fh.Open()
	if err != nil {
		return nil, noop, errutil.Internal("OpenUpload", err)
	}
	return &services.Picture{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(fiber.HeaderContentType),
		Size:        fh.Size,
		Body:        f,
	}, func() { _ = f.Close() }, nil
}
