// Package web serves the registration pages and the JSON registration API.
package web

import (
	"context"
	"embed"
	"io/fs"
	"net/http"

	gateway "github.com/adonese/signup/apigateway"
	"github.com/adonese/signup/apperr"
	"github.com/adonese/signup/profile"
	"github.com/adonese/signup/register"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/html/v2"
	"github.com/sirupsen/logrus"
)

//go:embed templates/*.html
var templates embed.FS

// NewViews returns the template engine for the embedded pages. Pages are
// rendered inside the "base" layout.
func NewViews() *html.Engine {
	sub, err := fs.Sub(templates, "templates")
	if err != nil {
		panic(err)
	}
	return html.NewFileSystem(http.FS(sub), ".html")
}

// Handler holds the dependencies of the HTTP surface.
type Handler struct {
	Registrar *register.Registrar
	Sessions  *gateway.Sessions
	// Profiles, when set, lets the dashboard show the stored profile.
	Profiles  profile.Reader
	Logger    *logrus.Logger
	LoginPath string
	// Ready is consulted by /healthz when set.
	Ready     func(ctx context.Context) error
}

type registerRequest struct {
	Email    string `json:"email" form:"email" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

// Mount registers the routes on r.
func (h *Handler) Mount(r fiber.Router) {
	r.Get("/", h.LoginPage)
	r.Get("/register", h.RegisterPage)
	r.Post("/register", h.RegisterSubmit)
	r.Post("/api/register", h.APIRegister)
	r.Get("/healthz", h.Healthz)
	if h.Sessions != nil {
		r.Get(h.destination(), h.Sessions.Require(), h.Dashboard)
	} else {
		r.Get(h.destination(), h.Dashboard)
	}
}

func (h *Handler) logger() *logrus.Logger {
	if h.Logger == nil {
		return logrus.StandardLogger()
	}
	return h.Logger
}

func (h *Handler) destination() string {
	if h.Registrar != nil && h.Registrar.Destination != "" {
		return h.Registrar.Destination
	}
	return register.DefaultDestination
}

func (h *Handler) loginPath() string {
	if h.LoginPath == "" {
		return "/"
	}
	return h.LoginPath
}

func (h *Handler) renderRegister(c *fiber.Ctx, status int, email, message string) error {
	return c.Status(status).Render("register", fiber.Map{
		"Title":     "Register",
		"Email":     email,
		"Error":     message,
		"LoginPath": h.loginPath(),
	}, "base")
}

// LoginPage is the placeholder behind the "Login" link.
func (h *Handler) LoginPage(c *fiber.Ctx) error {
	return c.Render("login", fiber.Map{"Title": "Login"}, "base")
}

func (h *Handler) RegisterPage(c *fiber.Ctx) error {
	return h.renderRegister(c, http.StatusOK, "", "")
}

// RegisterSubmit handles the urlencoded form post. Success answers with a
// 303 to the dashboard and a session cookie; failure re-renders the form
// with the message and the email that was typed.
func (h *Handler) RegisterSubmit(c *fiber.Ctx) error {
	var in registerRequest
	if err := c.BodyParser(&in); err != nil {
		return h.renderRegister(c, http.StatusBadRequest, "", apperr.ErrRegistration.Message)
	}

	form := register.NewForm(h.Registrar, register.NavigatorFunc(func(_ context.Context, destination string) {
		_ = c.Redirect(destination, http.StatusSeeOther)
	}))
	form.SetEmail(in.Email)
	form.SetPassword(in.Password)

	if err := form.Submit(c.UserContext()); err != nil {
		view := form.View()
		return h.renderRegister(c, apperr.Status(err), view.Email, view.Error)
	}

	res, _ := form.Result()
	h.startSession(c, res)
	return nil
}

// APIRegister is the JSON flavour of RegisterSubmit.
func (h *Handler) APIRegister(c *fiber.Ctx) error {
	var in registerRequest
	if err := bindJSON(c, &in); err != nil {
		jsonResponse(c, 0, err)
		return nil
	}

	res, err := h.Registrar.Register(c.UserContext(), in.Email, in.Password)
	if err != nil {
		jsonResponse(c, 0, err)
		return nil
	}

	h.startSession(c, res)
	jsonResponse(c, http.StatusCreated, fiber.Map{
		"id":       res.Account.ID,
		"email":    res.Account.Email,
		"redirect": res.Destination,
	})
	return nil
}

func (h *Handler) startSession(c *fiber.Ctx, res register.Result) {
	if h.Sessions == nil {
		return
	}
	if err := h.Sessions.SetCookie(c, res.Account); err != nil {
		// registration already succeeded; the dashboard will bounce to login
		h.logger().WithError(err).WithField("account_id", res.Account.ID).Error("unable to issue session")
	}
}

func (h *Handler) Dashboard(c *fiber.Ctx) error {
	email, _ := c.Locals("email").(string)
	data := fiber.Map{"Title": "Dashboard", "Email": email}
	if id, _ := c.Locals("account_id").(string); id != "" && h.Profiles != nil {
		p, err := h.Profiles.ReadProfile(c.UserContext(), id)
		if err != nil {
			h.logger().WithError(err).WithField("account_id", id).Warn("profile unavailable for dashboard")
		} else {
			data["Role"] = p.Role
		}
	}
	return c.Render("dashboard", data, "base")
}

func (h *Handler) Healthz(c *fiber.Ctx) error {
	if h.Ready != nil {
		if err := h.Ready(c.UserContext()); err != nil {
			h.logger().WithError(err).Warn("health check failed")
			jsonResponse(c, 0, apperr.Wrap(err, apperr.ErrUnavailable, "not ready"))
			return nil
		}
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"status": "ok"})
}
