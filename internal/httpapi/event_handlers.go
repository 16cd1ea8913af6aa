package httpapi

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"agora.events/internal/audit"
	"agora.events/internal/events"
	"agora.events/internal/identity"
	"agora.events/internal/permissions"
)

const maxUploadBytes = 5 << 20

func (a *API) handleEventsCollection(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		a.listEvents(w, r)
	case http.MethodPost:
		a.createEvent(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleEventResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/single/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	if strings.HasSuffix(path, "/upload") {
		id := strings.TrimSuffix(strings.TrimSuffix(path, "/upload"), "/")
		if id == "" {
			writeError(w, r, http.StatusNotFound, "event not found")
			return
		}
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		a.withEvent(id, a.uploadHeadImage)(w, r)
		return
	}

	if strings.HasSuffix(path, "/status") {
		id := strings.TrimSuffix(strings.TrimSuffix(path, "/status"), "/")
		if id == "" {
			writeError(w, r, http.StatusNotFound, "event not found")
			return
		}
		if r.Method != http.MethodPut {
			methodNotAllowed(w, r, http.MethodPut)
			return
		}
		a.withEvent(id, a.setEventStatus)(w, r)
		return
	}

	if strings.Contains(path, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		a.withEvent(path, a.getEvent)(w, r)
	case http.MethodPut:
		a.withEvent(path, a.updateEvent)(w, r)
	case http.MethodDelete:
		a.withEvent(path, a.deleteEvent)(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

func (a *API) listEvents(w http.ResponseWriter, r *http.Request) {
	user, _ := identity.UserFromContext(r.Context())
	set := a.eval.Evaluate(user, nil)

	filter := events.Filter{Status: events.StatusPublished}
	if set.Is[permissions.IsSuperadmin] || set.Is[permissions.IsBoardmember] {
		if status := r.URL.Query().Get("status"); status != "" {
			filter.Status = status
		}
	}

	list, err := a.events.List(r.Context(), filter)
	if err != nil {
		handleEventError(w, r, err)
		return
	}
	out := make([]*events.Event, 0, len(list))
	for _, ev := range list {
		out = append(out, permissions.FilterVisible(ev, user))
	}
	writeSuccess(w, http.StatusOK, out)
}

func (a *API) createEvent(w http.ResponseWriter, r *http.Request) {
	user, _ := identity.UserFromContext(r.Context())

	var ev events.Event
	if err := decodeJSON(w, r, &ev); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	// The creator always organizes their own event.
	if !ev.IsOrganizer(user.ID) {
		ev.Organizers = append(ev.Organizers, events.Organizer{
			UserID:    user.ID,
			FirstName: user.FirstName,
			LastName:  user.LastName,
		})
	}

	created, err := a.events.Create(r.Context(), &ev)
	if err != nil {
		handleEventError(w, r, err)
		return
	}

	_ = audit.LogEvent(auditCtx(r), "event_created", map[string]any{
		"event_id": created.ID,
		"name":     created.Name,
	})
	writeSuccess(w, http.StatusCreated, created)
}

func (a *API) getEvent(w http.ResponseWriter, r *http.Request, ev *events.Event, set permissions.Set) {
	user, _ := identity.UserFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"data":        permissions.FilterVisible(ev, user),
		"permissions": set,
	})
}

func (a *API) updateEvent(w http.ResponseWriter, r *http.Request, ev *events.Event, set permissions.Set) {
	if !set.Can[permissions.CanEditEvent] {
		writeError(w, r, http.StatusForbidden, "You are not allowed to edit this event")
		return
	}

	var changes events.Update
	if err := decodeJSON(w, r, &changes); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := a.events.Update(r.Context(), ev.ID, changes)
	if err != nil {
		handleEventError(w, r, err)
		return
	}

	_ = audit.LogEvent(auditCtx(r), "event_updated", map[string]any{
		"event_id": updated.ID,
	})
	writeSuccess(w, http.StatusOK, updated)
}

func (a *API) deleteEvent(w http.ResponseWriter, r *http.Request, ev *events.Event, set permissions.Set) {
	if !set.Can[permissions.CanDeleteEvent] {
		writeError(w, r, http.StatusForbidden, "You are not allowed to delete this event")
		return
	}

	if err := a.events.Delete(r.Context(), ev.ID); err != nil {
		handleEventError(w, r, err)
		return
	}

	_ = audit.LogEvent(auditCtx(r), "event_deleted", map[string]any{
		"event_id": ev.ID,
	})
	writeSuccess(w, http.StatusOK, map[string]any{"deleted": ev.ID})
}

type statusRequest struct {
	Status string `json:"status"`
}

// setEventStatus moves an event through its lifecycle. Organizers may shuttle
// between draft and requesting; publishing is reserved for superadmins and
// boardmembers.
func (a *API) setEventStatus(w http.ResponseWriter, r *http.Request, ev *events.Event, set permissions.Set) {
	var req statusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	privileged := set.Is[permissions.IsSuperadmin] || set.Is[permissions.IsBoardmember]
	switch req.Status {
	case events.StatusDraft, events.StatusRequesting:
		if !privileged && !set.Can[permissions.CanEditEvent] {
			writeError(w, r, http.StatusForbidden, "You are not allowed to change the status of this event")
			return
		}
	case events.StatusPublished:
		if !privileged {
			writeError(w, r, http.StatusForbidden, "Only the board can publish an event")
			return
		}
	default:
		writeError(w, r, http.StatusBadRequest, "invalid status")
		return
	}

	updated, err := a.events.SetStatus(r.Context(), ev.ID, req.Status)
	if err != nil {
		handleEventError(w, r, err)
		return
	}

	_ = audit.LogEvent(auditCtx(r), "event_status_changed", map[string]any{
		"event_id": updated.ID,
		"status":   updated.Status,
	})
	writeSuccess(w, http.StatusOK, updated)
}

var allowedImageExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
}

func (a *API) uploadHeadImage(w http.ResponseWriter, r *http.Request, ev *events.Event, set permissions.Set) {
	if !set.Can[permissions.CanEditEvent] {
		writeError(w, r, http.StatusForbidden, "You are not allowed to edit this event")
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, r, http.StatusBadRequest, "could not parse upload")
		return
	}
	file, header, err := r.FormFile("head_image")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "head_image file is required")
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedImageExts[ext] {
		writeError(w, r, http.StatusBadRequest, "only png, jpg, jpeg and gif images are accepted")
		return
	}

	// Sniff the actual content; the extension alone is not trusted.
	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		writeError(w, r, http.StatusBadRequest, "could not read upload")
		return
	}
	if !strings.HasPrefix(http.DetectContentType(head[:n]), "image/") {
		writeError(w, r, http.StatusBadRequest, "uploaded file is not an image")
		return
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		writeError(w, r, http.StatusInternalServerError, "could not read upload")
		return
	}

	if err := os.MkdirAll(a.mediaDir, 0o755); err != nil {
		writeError(w, r, http.StatusInternalServerError, "could not store upload")
		return
	}
	filename := ev.ID + "-" + uuid.NewString() + ext
	dst, err := os.Create(filepath.Join(a.mediaDir, filename))
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "could not store upload")
		return
	}
	if _, err := io.Copy(dst, file); err != nil {
		dst.Close()
		writeError(w, r, http.StatusInternalServerError, "could not store upload")
		return
	}
	if err := dst.Close(); err != nil {
		writeError(w, r, http.StatusInternalServerError, "could not store upload")
		return
	}

	if err := a.events.SetHeadImage(r.Context(), ev.ID, filename); err != nil {
		handleEventError(w, r, err)
		return
	}

	_ = audit.LogEvent(auditCtx(r), "event_head_image_uploaded", map[string]any{
		"event_id": ev.ID,
		"filename": filename,
	})
	writeSuccess(w, http.StatusOK, map[string]any{"head_image": filename})
}

// auditCtx tags the request context so audit lines carry the request id.
func auditCtx(r *http.Request) context.Context {
	ctx := r.Context()
	if rid := RequestIDFromContext(ctx); rid != "" {
		ctx = audit.WithRequestID(ctx, rid)
	}
	return ctx
}
