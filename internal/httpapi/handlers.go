package httpapi

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"schoolgate/internal/attendance"
	"schoolgate/internal/auth"
	"schoolgate/internal/cloudinary"
	"schoolgate/internal/metrics"
	"schoolgate/internal/qr"
	"schoolgate/internal/queue"
)

type locationBody struct {
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	AccuracyM float64 `json:"accuracyM"`
}

func (l *locationBody) toModel() *attendance.Location {
	if l == nil {
		return nil
	}
	return &attendance.Location{Lat: l.Lat, Lon: l.Lon, AccuracyM: l.AccuracyM}
}

func (s *Server) checkIn(c *gin.Context) {
	claims, ok := auth.FromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing identity"})
		return
	}
	var req struct {
		QRData   string        `json:"qrData" binding:"required"`
		CourseID *string       `json:"courseId"`
		Notes    *string       `json:"notes"`
		Location *locationBody `json:"location"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "qrData is required"})
		return
	}

	res, err := s.svc.CheckIn(c.Request.Context(), claims.Subject, req.QRData, req.CourseID, req.Notes, req.Location.toModel())
	if err != nil {
		s.checkError(c, err, "check-in")
		return
	}

	metrics.CheckIns.Inc()
	s.publish(c, queue.TypeCheckIn, queue.AttendanceEvent{
		RecordID:   res.RecordID,
		ChildID:    res.ChildID,
		ChildName:  res.ChildName,
		GuardianID: res.GuardianID,
		At:         res.At,
	})

	c.JSON(http.StatusCreated, gin.H{
		"success":      true,
		"attendanceId": res.RecordID,
		"message":      res.ChildName + " checked in successfully",
	})
}

func (s *Server) checkOut(c *gin.Context) {
	claims, ok := auth.FromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing identity"})
		return
	}
	var req struct {
		QRData   string        `json:"qrData" binding:"required"`
		Location *locationBody `json:"location"`
		PhotoURL string        `json:"photoUrl"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "qrData is required"})
		return
	}

	res, err := s.svc.CheckOut(c.Request.Context(), claims.Subject, req.QRData, req.Location.toModel(), req.PhotoURL)
	if err != nil {
		s.checkError(c, err, "check-out")
		return
	}

	metrics.CheckOuts.Inc()
	s.publish(c, queue.TypeCheckOut, queue.AttendanceEvent{
		RecordID:   res.RecordID,
		ChildID:    res.ChildID,
		ChildName:  res.ChildName,
		GuardianID: res.GuardianID,
		At:         res.At,
	})

	resp := gin.H{
		"success":      true,
		"childName":    res.ChildName,
		"checkOutTime": res.At,
		"message":      res.ChildName + " checked out successfully",
	}
	if res.LocationVerified != nil {
		resp["locationVerified"] = *res.LocationVerified
	}
	c.JSON(http.StatusOK, resp)
}

// checkError maps service sentinels onto HTTP statuses; anything unexpected
// is logged raw and answered with a generic 500.
func (s *Server) checkError(c *gin.Context, err error, op string) {
	switch {
	case errors.Is(err, attendance.ErrBadPayload):
		metrics.ScanRejections.WithLabelValues("bad_payload").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid QR code"})
	case errors.Is(err, attendance.ErrChildNotFound):
		metrics.ScanRejections.WithLabelValues("unknown_child").Inc()
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Child not found"})
	case errors.Is(err, attendance.ErrAlreadyCheckedIn):
		c.JSON(http.StatusConflict, gin.H{"success": false, "message": "Child is already checked in"})
	case errors.Is(err, attendance.ErrNoActiveRecord):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "No active check-in found"})
	default:
		log.Printf("%s failed: %v", op, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Something went wrong, please try again"})
	}
}

// publish hands the event to the notification queue; a publish failure never
// fails the request that already committed its transition.
func (s *Server) publish(c *gin.Context, msgType string, evt queue.AttendanceEvent) {
	if s.q == nil {
		return
	}
	msg, err := queue.NewAttendanceMessage(msgType, evt)
	if err != nil {
		log.Printf("event encode failed: %v", err)
		return
	}
	if err := s.q.Publish(c.Request.Context(), msg); err != nil {
		log.Printf("queue publish failed: %v", err)
	}
}

func (s *Server) listAttendance(c *gin.Context) {
	childID := c.Query("childId")
	active := strings.EqualFold(c.Query("active"), "true")

	var (
		records []attendance.Record
		err     error
	)
	switch {
	case active:
		records, err = s.svc.Active(c.Request.Context())
	case childID != "":
		records, err = s.svc.ForChild(c.Request.Context(), childID)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "childId or active=true is required"})
		return
	}
	if err != nil {
		log.Printf("attendance list failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Something went wrong, please try again"})
		return
	}
	if records == nil {
		records = []attendance.Record{}
	}
	c.JSON(http.StatusOK, records)
}

func (s *Server) analytics(c *gin.Context) {
	kind := c.Query("type")
	from, ok := parseDate(c, c.Query("startDate"))
	if !ok {
		return
	}
	to, ok := parseDate(c, c.Query("endDate"))
	if !ok {
		return
	}
	if !to.IsZero() {
		// make the end date inclusive for whole-day queries
		to = to.Add(24*time.Hour - time.Nanosecond)
	}

	result, err := s.svc.Analytics(c.Request.Context(), kind, from, to, c.Query("childId"))
	if err != nil {
		if errors.Is(err, attendance.ErrBadAnalyticsType) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "type must be summary, daily, by-child or monthly"})
			return
		}
		log.Printf("analytics failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Something went wrong, please try again"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"type": kind, "data": result})
}

func parseDate(c *gin.Context, raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, true
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "dates must be YYYY-MM-DD"})
		return time.Time{}, false
	}
	return t, true
}

// childQR issues a fresh QR image for a child. The payload is regenerated on
// every request; caching for offline display happens on the device.
func (s *Server) childQR(c *gin.Context) {
	id := c.Param("id")
	child, err := s.dir.Get(c.Request.Context(), id)
	if err != nil {
		log.Printf("child lookup failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Something went wrong, please try again"})
		return
	}
	if child == nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Child not found"})
		return
	}

	payload := s.codec.Generate(qr.KindChild, child.ID)
	png, err := qr.EncodePNG(payload, s.cfg.QRImageSize)
	if err != nil {
		log.Printf("qr encode failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "QR generation failed"})
		return
	}
	metrics.QRIssued.Inc()
	c.Header("X-QR-Payload", payload)
	c.Header("X-QR-Child-Name", child.Name())
	c.Data(http.StatusOK, "image/png", png)
}

// upload stores a check-out photo and returns the public URL for the
// photoUrl field of /attendance/checkout.
func (s *Server) upload(c *gin.Context) {
	if s.cdn == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "image storage not configured"})
		return
	}

	var result *cloudinary.UploadResult
	var err error

	switch {
	case strings.Contains(c.ContentType(), "multipart/form-data"):
		file, header, ferr := c.Request.FormFile("file")
		if ferr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file field required"})
			return
		}
		defer file.Close()
		data, ferr := io.ReadAll(file)
		if ferr != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "read file failed"})
			return
		}
		result, err = s.cdn.UploadBytes(data, header.Filename)

	default:
		var body struct {
			Data string `json:"data" binding:"required"`
		}
		if berr := c.ShouldBindJSON(&body); berr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "provide {\"data\": \"<base64 data URL>\"}"})
			return
		}
		result, err = s.cdn.UploadBase64(body.Data)
	}

	if err != nil {
		log.Printf("cloudinary upload failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "image upload failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"url":       result.SecureURL,
		"public_id": result.PublicID,
		"bytes":     result.Bytes,
	})
}
