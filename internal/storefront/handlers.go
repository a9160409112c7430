package storefront

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	"finitefield.org/nutricart/internal/catalog"
	"finitefield.org/nutricart/internal/format"
	mw "finitefield.org/nutricart/internal/middleware"
	"finitefield.org/nutricart/internal/notify"
	"finitefield.org/nutricart/internal/platform/observability"
	"finitefield.org/nutricart/internal/profile"
	"finitefield.org/nutricart/internal/render"
)

const (
	msgSelectFile   = "Please select a file first"
	msgUploadFailed = "Failed to upload image: "
	msgUploadError  = "Error uploading image: "
	msgGenericError = "An error occurred. Please try again later."

	profileTitle = "Profile"
)

// ProfileBackend is the subset of profile.Client the handlers use.
type ProfileBackend interface {
	ImageUploader
	FetchImage(ctx context.Context) (io.ReadCloser, string, error)
	UpdateProfile(ctx context.Context, name, email string) error
}

// Config wires the handler dependencies.
type Config struct {
	Manager        *Manager
	Renderer       *render.Renderer
	Registry       *catalog.Registry
	Fetcher        catalog.Fetcher
	Profile        ProfileBackend
	UploadMaxBytes int64
	Now            func() time.Time
	// Static serves /cart/static/*, typically a proxy to the backend's product images.
	Static http.Handler
}

// Handlers serves the storefront pages and htmx fragments.
type Handlers struct {
	manager   *Manager
	renderer  *render.Renderer
	registry  *catalog.Registry
	fetcher   catalog.Fetcher
	profile   ProfileBackend
	uploadMax int64
	now       func() time.Time
	static    http.Handler
}

// NewHandlers validates cfg and builds the handler set.
func NewHandlers(cfg Config) (*Handlers, error) {
	switch {
	case cfg.Manager == nil:
		return nil, errors.New("storefront: manager is required")
	case cfg.Renderer == nil:
		return nil, errors.New("storefront: renderer is required")
	case cfg.Fetcher == nil:
		return nil, errors.New("storefront: catalog fetcher is required")
	case cfg.Profile == nil:
		return nil, errors.New("storefront: profile backend is required")
	}
	if cfg.Registry == nil {
		cfg.Registry = catalog.DefaultRegistry()
	}
	if cfg.UploadMaxBytes <= 0 {
		cfg.UploadMaxBytes = profile.DefaultMaxUploadBytes
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Handlers{
		manager:   cfg.Manager,
		renderer:  cfg.Renderer,
		registry:  cfg.Registry,
		fetcher:   cfg.Fetcher,
		profile:   cfg.Profile,
		uploadMax: cfg.UploadMaxBytes,
		now:       cfg.Now,
		static:    cfg.Static,
	}, nil
}

// Routes mounts the storefront on r.
func (h *Handlers) Routes(r chi.Router) {
	r.Get("/", h.Home)
	r.Route("/shop/{category}", func(r chi.Router) {
		r.Get("/", h.Page)
		r.Get("/products", h.Products)
	})
	r.Route("/cart", func(r chi.Router) {
		r.Get("/", h.CartPanel)
		r.Post("/items/{id}", h.AddItem)
		r.Delete("/items/{id}", h.RemoveItem)
		r.Post("/clear", h.ClearCart)
		r.Get("/drawer", h.Drawer)
		if h.static != nil {
			r.Handle("/static/*", h.static)
		}
	})
	r.Get("/notifications", h.Notifications)
	r.Delete("/notifications/{id}", h.DismissToast)
	r.Get("/profile", h.Profile)
	r.Post("/profile", h.UpdateProfile)
	r.Post("/profile/image", h.UploadImage)
	r.Get("/auth/get_profile_image", h.ProfileImage)
}

// Home redirects to the default category.
func (h *Handlers) Home(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/shop/"+h.registry.Default(), http.StatusFound)
}

// Page renders the full category page.
func (h *Handlers) Page(w http.ResponseWriter, r *http.Request) {
	cat, ok := h.category(w, r)
	if !ok {
		return
	}
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	health, key := viewParams(r)
	h.load(ctx, sess, cat.Slug)

	page := render.PageView{
		Layout:   h.layout(r, sess, cat.Title, cat.Slug),
		Category: cat.Slug,
		Health:   render.HealthOptions(health),
		Sorts:    render.SortOptions(key),
		Grid:     sess.Grid(ctx, cat.Slug, health, key),
	}
	h.render(w, r, http.StatusOK, fragment{render.FragPage, page})
}

// Products renders the product grid for the current filter and sort. The catalog on screen is
// reused; it is fetched only when the category changed or the last load failed. Requests outside
// htmx are sent to the full page with the same query.
func (h *Handlers) Products(w http.ResponseWriter, r *http.Request) {
	cat, ok := h.category(w, r)
	if !ok {
		return
	}
	if !mw.IsHTMX(r.Context()) {
		target := "/shop/" + cat.Slug
		if r.URL.RawQuery != "" {
			target += "?" + r.URL.RawQuery
		}
		http.Redirect(w, r, target, http.StatusFound)
		return
	}
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	health, key := viewParams(r)
	if st := sess.CatalogStatus(); st.Category != cat.Slug || st.State != catalog.StateReady {
		h.load(r.Context(), sess, cat.Slug)
	}
	h.render(w, r, http.StatusOK, fragment{render.FragProductGrid, sess.Grid(r.Context(), cat.Slug, health, key)})
}

// CartPanel renders the cart panel and badge.
func (h *Handlers) CartPanel(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	panel := sess.Cart(r.Context())
	h.render(w, r, http.StatusOK, fragment{render.FragCartPanel, panel}, fragment{render.FragCartBadge, panel})
}

// AddItem adds one unit of a product from the catalog on screen.
func (h *Handlers) AddItem(w http.ResponseWriter, r *http.Request) {
	h.cartAction(w, r, func(ctx context.Context, s *Session, id int64) CartResult { return s.Add(ctx, id) })
}

// RemoveItem removes one unit of a product.
func (h *Handlers) RemoveItem(w http.ResponseWriter, r *http.Request) {
	h.cartAction(w, r, func(ctx context.Context, s *Session, id int64) CartResult { return s.Remove(ctx, id) })
}

// ClearCart empties the cart.
func (h *Handlers) ClearCart(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	res := sess.Clear(r.Context())
	h.writeResult(w, r, res)
}

func (h *Handlers) cartAction(w http.ResponseWriter, r *http.Request, fn func(context.Context, *Session, int64) CartResult) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid product id", http.StatusBadRequest)
		return
	}
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	h.writeResult(w, r, fn(r.Context(), sess, id))
}

func (h *Handlers) writeResult(w http.ResponseWriter, r *http.Request, res CartResult) {
	notify.SetTrigger(w.Header(), res.Toasts...)
	h.render(w, r, http.StatusOK, fragment{render.FragCartPanel, res.Panel}, fragment{render.FragCartBadge, res.Panel})
}

// Drawer opens, closes or handles a click on the cart drawer.
func (h *Handlers) Drawer(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	action := strings.ToLower(strings.TrimSpace(q.Get("action")))
	switch action {
	case "", "open", "close", "click":
	default:
		http.Error(w, "unknown drawer action", http.StatusBadRequest)
		return
	}
	view := sess.Drawer(r.Context(), action, notify.ParseTarget(q.Get("target")))
	h.render(w, r, http.StatusOK, fragment{render.FragDrawer, view})
}

// Notifications renders the live toasts.
func (h *Handlers) Notifications(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	h.render(w, r, http.StatusOK, fragment{render.FragToasts, sess.Toasts()})
}

// DismissToast closes one toast and renders the remaining ones.
func (h *Handlers) DismissToast(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	if !sess.Dismiss(chi.URLParam(r, "id")) {
		observability.FromContext(r.Context()).Debug("toast already gone")
	}
	h.render(w, r, http.StatusOK, fragment{render.FragToasts, sess.Toasts()})
}

// Profile renders the profile form, inside the page shell unless htmx asked for the fragment.
func (h *Handlers) Profile(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	h.renderProfile(w, r, http.StatusOK, sess, h.profileView(r.Context(), sess))
}

// UpdateProfile submits name and email; accepted values are remembered on this device.
func (h *Handlers) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	ctx := r.Context()
	name := strings.TrimSpace(r.PostForm.Get("name"))
	email := strings.TrimSpace(r.PostForm.Get("email"))

	status := http.StatusOK
	var toast notify.Toast
	switch err := h.profile.UpdateProfile(ctx, name, email); {
	case err == nil:
		if err := sess.RememberProfile(ctx, name, email); err != nil {
			observability.FromContext(ctx).Warn("remember profile", zap.Error(err))
		}
		toast = sess.Notify(render.MsgProfileSaved, notify.ToneSuccess)
	case profile.IsRejection(err):
		toast = sess.Notify(render.MsgProfileError, notify.ToneDanger)
	default:
		observability.FromContext(ctx).Warn("update profile", zap.Error(err))
		status = http.StatusBadGateway
		toast = sess.Notify(msgGenericError, notify.ToneDanger)
	}
	notify.SetTrigger(w.Header(), toast)
	h.renderProfile(w, r, status, sess, h.profileView(ctx, sess))
}

// UploadImage accepts a multipart "image" field and forwards it to the backend.
func (h *Handlers) UploadImage(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	up, err := h.readUpload(w, r)
	if err == nil {
		err = sess.UploadImage(ctx, h.profile, up.contentType, up.data, h.uploadMax, h.now())
	}

	status := http.StatusOK
	var toast notify.Toast
	var re *profile.RejectionError
	switch {
	case err == nil:
		toast = sess.Notify(render.MsgImageSaved, notify.ToneSuccess)
	case profile.IsValidation(err):
		status = http.StatusUnprocessableEntity
		toast = sess.Notify(err.Error(), notify.ToneDanger)
	case errors.As(err, &re):
		toast = sess.Notify(msgUploadFailed+re.Message, notify.ToneDanger)
	default:
		observability.FromContext(ctx).Warn("upload profile image", zap.Error(err))
		status = http.StatusBadGateway
		toast = sess.Notify(msgUploadError+err.Error(), notify.ToneDanger)
	}
	view := h.profileView(ctx, sess)
	if err == nil {
		view.Uploaded = profile.Describe(up.filename, int64(len(up.data)))
	}
	notify.SetTrigger(w.Header(), toast)
	h.renderProfile(w, r, status, sess, view)
}

type upload struct {
	filename    string
	contentType string
	data        []byte
}

func (h *Handlers) readUpload(w http.ResponseWriter, r *http.Request) (upload, error) {
	limit := h.uploadMax + 1<<20
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return upload{}, profile.ValidateUpload(h.uploadMax+1, h.uploadMax)
		}
		return upload{}, &profile.ValidationError{Field: "image", Message: msgSelectFile}
	}
	file, hdr, err := r.FormFile("image")
	if err != nil {
		return upload{}, &profile.ValidationError{Field: "image", Message: msgSelectFile}
	}
	defer file.Close()

	if err := profile.ValidateUpload(hdr.Size, h.uploadMax); err != nil {
		return upload{}, err
	}
	data, err := io.ReadAll(io.LimitReader(file, h.uploadMax+1))
	if err != nil {
		return upload{}, err
	}
	return upload{filename: hdr.Filename, contentType: hdr.Header.Get("Content-Type"), data: data}, nil
}

// ProfileImage streams the stored profile image from the backend.
func (h *Handlers) ProfileImage(w http.ResponseWriter, r *http.Request) {
	body, contentType, err := h.profile.FetchImage(r.Context())
	if err != nil {
		observability.FromContext(r.Context()).Warn("fetch profile image", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		return
	}
	defer body.Close()
	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	w.Header().Set("Cache-Control", "no-store")
	_, _ = io.Copy(w, body)
}

func (h *Handlers) profileView(ctx context.Context, sess *Session) render.ProfileView {
	name, email := sess.ProfileFields(ctx)
	img := sess.Image(h.profile.ImageURL(h.now()))
	return render.ProfileView{
		Name:        name,
		Email:       email,
		ImageSource: img.Source(),
		Pending:     img.Pending(),
		MaxUpload:   format.FileSize(h.uploadMax),
	}
}

// renderProfile answers htmx with the form fragment and everything else with the full page.
func (h *Handlers) renderProfile(w http.ResponseWriter, r *http.Request, status int, sess *Session, view render.ProfileView) {
	if mw.IsHTMX(r.Context()) {
		h.render(w, r, status, fragment{render.FragProfile, view})
		return
	}
	page := render.ProfilePageView{
		Layout:  h.layout(r, sess, profileTitle, ""),
		Profile: view,
	}
	h.render(w, r, status, fragment{render.FragProfilePage, page})
}

// layout fills the page shell: navigation, drawer, toasts, the CSRF token htmx echoes on unsafe
// requests and the negotiated document language.
func (h *Handlers) layout(r *http.Request, sess *Session, title, category string) render.Layout {
	ctx := r.Context()
	var lang string
	if tag := mw.Locale(ctx, language.Und); tag != language.Und {
		lang = tag.String()
	}
	return render.Layout{
		Title:      title,
		Lang:       lang,
		CSRFToken:  mw.CSRFToken(r),
		Categories: render.CategoryOptions(h.registry, category),
		Drawer:     sess.DrawerView(ctx),
		Toasts:     sess.Toasts(),
	}
}

func (h *Handlers) load(ctx context.Context, sess *Session, category string) {
	// failures are reflected in the loader state and rendered as the error grid
	_, _ = sess.Load(ctx, h.fetcher, category)
}

func (h *Handlers) category(w http.ResponseWriter, r *http.Request) (catalog.Category, bool) {
	c, ok := h.registry.Lookup(chi.URLParam(r, "category"))
	if !ok {
		http.NotFound(w, r)
		return catalog.Category{}, false
	}
	return c, true
}

func (h *Handlers) session(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	sd, ok := mw.SessionFromContext(r.Context())
	if !ok || sd.ID == "" {
		http.Error(w, "session unavailable", http.StatusInternalServerError)
		return nil, false
	}
	sess, err := h.manager.Session(r.Context(), sd.ID)
	if err != nil {
		observability.FromContext(r.Context()).Error("open session", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return nil, false
	}
	return sess, true
}

type fragment struct {
	name string
	data any
}

// render buffers every fragment so a template error never leaves a half-written response.
func (h *Handlers) render(w http.ResponseWriter, r *http.Request, status int, frags ...fragment) {
	var buf bytes.Buffer
	for _, f := range frags {
		if err := h.renderer.Execute(&buf, f.name, f.data); err != nil {
			observability.FromContext(r.Context()).Error("render fragment", zap.String("fragment", f.name), zap.Error(err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func viewParams(r *http.Request) (string, catalog.SortKey) {
	q := r.URL.Query()
	health := strings.ToLower(strings.TrimSpace(q.Get("health")))
	if health == "" {
		health = catalog.HealthNormal
	}
	return health, catalog.ParseSortKey(q.Get("sort"))
}
