package devices

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"inventory-backend/internal/platform/auth"
)

// フォーム送信後の戻り先（デバイス一覧画面）
const listPagePath = "/devices/"

type Handler struct{ svc *Service }

// RegisterRoutes: authed は RequireAuth 済み、staff はさらに RequireRole(staff, admin) 済みのグループ
func RegisterRoutes(authed gin.IRoutes, staff gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	// 1. 一覧・詳細
	authed.GET("/devices", h.ListDevices)
	authed.GET("/devices/export", h.ExportDevices)
	authed.GET("/devices/:id", h.GetDevice)
	authed.GET("/devices/:id/comments", h.ListComments)
	authed.GET("/devices/:id/history", h.ListRevisions)

	// 2. 貸出・返却
	authed.POST("/devices/:id/checkout", h.Checkout)
	authed.POST("/devices/:id/checkout/confirm", h.ConfirmCheckout)
	authed.POST("/devices/:id/checkin", h.Checkin)

	// 3. 登録・編集・削除（staff / admin のみ）
	staff.POST("/devices", h.CreateDevice)
	staff.PUT("/devices/:id", h.UpdateDevice)
	staff.POST("/devices/:id/edit", h.UpdateDevice)
	staff.DELETE("/devices/:id", h.DeleteDevice)
	staff.POST("/devices/:id/delete", h.DeleteDevice)
}

// ---------- handlers ----------

// ListDevices godoc
// @Summary  デバイス一覧
// @Tags     devices
// @Produce  json
// @Param    status     query string false "checked_out|checked_in|broken|missing"
// @Param    condition  query string false "excellent|scratched|broken|missing"
// @Param    lendee_id  query int    false "lendee id"
// @Param    q          query string false "name / serial number"
// @Param    limit      query int    false "default 50"
// @Param    offset     query int    false "offset"
// @Param    order      query string false "asc|desc"
// @Success  200 {object} DeviceListResponse
// @Security BearerAuth
// @Router   /devices [get]
func (h *Handler) ListDevices(c *gin.Context) {
	f, err := parseFilter(c)
	if err != nil {
		c.JSON(toHTTPStatus(err), newErrDTO(err))
		return
	}
	p := Page{
		Limit:  parseIntDefault(c.Query("limit"), 50),
		Offset: parseIntDefault(c.Query("offset"), 0),
		Order:  c.DefaultQuery("order", "desc"),
	}
	res, err := h.svc.ListDevices(c.Request.Context(), f, p)
	if err != nil {
		c.JSON(toHTTPStatus(err), newErrDTO(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

// ExportDevices godoc
// @Summary  デバイス一覧の CSV
// @Tags     devices
// @Produce  text/csv
// @Param    encoding query string false "utf8|cp932"
// @Success  200 {file} file
// @Security BearerAuth
// @Router   /devices/export [get]
func (h *Handler) ExportDevices(c *gin.Context) {
	f, err := parseFilter(c)
	if err != nil {
		c.JSON(toHTTPStatus(err), newErrDTO(err))
		return
	}
	enc := c.DefaultQuery("encoding", EncodingUTF8)
	body, err := h.svc.ExportCSV(c.Request.Context(), f, enc)
	if err != nil {
		c.JSON(toHTTPStatus(err), newErrDTO(err))
		return
	}

	contentType := "text/csv; charset=utf-8"
	if enc == EncodingCP932 {
		contentType = "text/csv; charset=Shift_JIS"
	}
	c.Header("Content-Disposition", `attachment; filename="devices.csv"`)
	c.Data(http.StatusOK, contentType, body)
}

// GetDevice godoc
// @Summary  デバイス詳細
// @Tags     devices
// @Produce  json
// @Param    id path int true "device id"
// @Success  200 {object} DeviceResponse
// @Failure  404 {object} errDTO
// @Security BearerAuth
// @Router   /devices/{id} [get]
func (h *Handler) GetDevice(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(toHTTPStatus(err), newErrDTO(err))
		return
	}
	res, err := h.svc.GetDevice(c.Request.Context(), id)
	if err != nil {
		c.JSON(toHTTPStatus(err), newErrDTO(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

// CreateDevice godoc
// @Summary  デバイス登録
// @Tags     devices
// @Accept   json,x-www-form-urlencoded
// @Produce  json
// @Param    body body CreateDeviceRequest true "device"
// @Success  201 {object} DeviceResponse
// @Security BearerAuth
// @Router   /devices [post]
func (h *Handler) CreateDevice(c *gin.Context) {
	var req CreateDeviceRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, newErrDTO(ErrInvalid("invalid request or missing required fields")))
		return
	}
	actorID, _ := auth.CurrentUserID(c)

	res, err := h.svc.CreateDevice(c.Request.Context(), actorID, req)
	if err != nil {
		c.JSON(toHTTPStatus(err), newErrDTO(err))
		return
	}
	if isFormPost(c) {
		c.Redirect(http.StatusSeeOther, listPagePath)
		return
	}
	c.Header("Location", "/devices/"+strconv.FormatInt(res.DeviceID, 10))
	c.JSON(http.StatusCreated, res)
}

// UpdateDevice godoc
// @Summary  デバイス編集（PUT は JSON、/edit はフォーム）
// @Tags     devices
// @Accept   json,x-www-form-urlencoded
// @Produce  json
// @Param    id   path int                 true "device id"
// @Param    body body UpdateDeviceRequest true "変更するフィールドのみ"
// @Success  200 {object} DeviceResponse
// @Failure  404 {object} errDTO
// @Security BearerAuth
// @Router   /devices/{id} [put]
// @Router   /devices/{id}/edit [post]
func (h *Handler) UpdateDevice(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(toHTTPStatus(err), newErrDTO(err))
		return
	}
	var req UpdateDeviceRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, newErrDTO(ErrInvalid("invalid request")))
		return
	}
	actorID, _ := auth.CurrentUserID(c)

	res, err := h.svc.UpdateDevice(c.Request.Context(), actorID, id, req)
	if err != nil {
		c.JSON(toHTTPStatus(err), newErrDTO(err))
		return
	}
	if isFormPost(c) {
		c.Redirect(http.StatusSeeOther, listPagePath)
		return
	}
	c.JSON(http.StatusOK, res)
}

// DeleteDevice godoc
// @Summary     デバイス削除
// @Description 一覧画面の削除ボタン（AJAX）から呼ばれる。存在しなくても成功を返す
// @Tags        devices
// @Produce     json
// @Param       id path int true "device id"
// @Success     200 {object} map[string]bool
// @Security    BearerAuth
// @Router      /devices/{id} [delete]
// @Router      /devices/{id}/delete [post]
func (h *Handler) DeleteDevice(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(toHTTPStatus(err), newErrDTO(err))
		return
	}
	actorID, _ := auth.CurrentUserID(c)

	if err := h.svc.DeleteDevice(c.Request.Context(), actorID, id); err != nil {
		c.JSON(toHTTPStatus(err), newErrDTO(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Checkout godoc
// @Summary  貸出先の解決（確認前）
// @Tags     checkout
// @Accept   json,x-www-form-urlencoded
// @Produce  json
// @Param    id   path int             true "device id"
// @Param    body body CheckoutRequest true "lendee"
// @Success  200 {object} CheckoutResponse
// @Security BearerAuth
// @Router   /devices/{id}/checkout [post]
func (h *Handler) Checkout(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(toHTTPStatus(err), flatErr(err))
		return
	}
	var req CheckoutRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, flatErr(ErrInvalid("invalid request")))
		return
	}

	res, err := h.svc.Checkout(c.Request.Context(), id, req.Lendee)
	if err != nil {
		c.JSON(toHTTPStatus(err), flatErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

// ConfirmCheckout godoc
// @Summary  貸出の確定
// @Tags     checkout
// @Accept   json,x-www-form-urlencoded
// @Produce  json
// @Param    id   path int             true "device id"
// @Param    body body CheckoutRequest true "lendee"
// @Success  200 {object} map[string]bool
// @Security BearerAuth
// @Router   /devices/{id}/checkout/confirm [post]
func (h *Handler) ConfirmCheckout(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(toHTTPStatus(err), flatErr(err))
		return
	}
	var req CheckoutRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, flatErr(ErrInvalid("invalid request")))
		return
	}
	actorID, ok := auth.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, flatErr(ErrUnauthorized("login required")))
		return
	}

	if err := h.svc.ConfirmCheckout(c.Request.Context(), actorID, id, req.Lendee); err != nil {
		c.JSON(toHTTPStatus(err), flatErr(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Checkin godoc
// @Summary  返却
// @Tags     checkin
// @Accept   json,x-www-form-urlencoded
// @Produce  json
// @Param    id   path int            true "device id"
// @Param    body body CheckinRequest true "condition / comment"
// @Success  200 {object} DeviceResponse
// @Security BearerAuth
// @Router   /devices/{id}/checkin [post]
func (h *Handler) Checkin(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(toHTTPStatus(err), newErrDTO(err))
		return
	}
	var req CheckinRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, newErrDTO(ErrInvalid("condition must be one of excellent, scratched, broken, missing")))
		return
	}
	actorID, _ := auth.CurrentUserID(c)

	res, err := h.svc.Checkin(c.Request.Context(), actorID, id, req)
	if err != nil {
		c.JSON(toHTTPStatus(err), newErrDTO(err))
		return
	}
	if isFormPost(c) {
		c.Redirect(http.StatusSeeOther, listPagePath)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ListComments godoc
// @Summary  返却時コメント一覧
// @Tags     devices
// @Produce  json
// @Param    id path int true "device id"
// @Success  200 {object} CommentListResponse
// @Failure  404 {object} errDTO
// @Security BearerAuth
// @Router   /devices/{id}/comments [get]
func (h *Handler) ListComments(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(toHTTPStatus(err), newErrDTO(err))
		return
	}
	res, err := h.svc.ListComments(c.Request.Context(), id)
	if err != nil {
		c.JSON(toHTTPStatus(err), newErrDTO(err))
		return
	}
	c.JSON(http.StatusOK, CommentListResponse{Items: res})
}

// ListRevisions godoc
// @Summary  変更履歴
// @Tags     devices
// @Produce  json
// @Param    id path int true "device id"
// @Success  200 {object} RevisionListResponse
// @Security BearerAuth
// @Router   /devices/{id}/history [get]
func (h *Handler) ListRevisions(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(toHTTPStatus(err), newErrDTO(err))
		return
	}
	res, err := h.svc.ListRevisions(c.Request.Context(), id)
	if err != nil {
		c.JSON(toHTTPStatus(err), newErrDTO(err))
		return
	}
	c.JSON(http.StatusOK, RevisionListResponse{Items: res})
}

// ---------- helpers ----------

func parseID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalid("invalid device id")
	}
	return id, nil
}

func parseFilter(c *gin.Context) (DeviceFilter, error) {
	f := DeviceFilter{Q: c.Query("q")}
	if v := c.Query("status"); v != "" {
		st := Status(v)
		if !st.Valid() {
			return f, ErrInvalid("invalid status")
		}
		f.Status = &st
	}
	if v := c.Query("condition"); v != "" {
		cond := Condition(v)
		if !cond.Valid() {
			return f, ErrInvalid("invalid condition")
		}
		f.Condition = &cond
	}
	if v := c.Query("lendee_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return f, ErrInvalid("invalid lendee_id")
		}
		f.LendeeID = &id
	}
	return f, nil
}

func parseIntDefault(s string, d int) int {
	if s == "" {
		return d
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return d
	}
	return v
}

// HTML フォームからの送信ならリダイレクトで返す
func isFormPost(c *gin.Context) bool {
	switch c.ContentType() {
	case binding.MIMEPOSTForm, binding.MIMEMultipartPOSTForm:
		return true
	}
	return false
}
