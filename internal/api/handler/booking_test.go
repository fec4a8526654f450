package handler

import (
	"fmt"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/planhub/planhub_go_server/config"
	"github.com/planhub/planhub_go_server/internal/model"
	"github.com/planhub/planhub_go_server/internal/model/dto"
	"github.com/planhub/planhub_go_server/internal/pkg/response"
	"github.com/planhub/planhub_go_server/internal/repository"
	"github.com/planhub/planhub_go_server/internal/service"
	"github.com/planhub/planhub_go_server/internal/testutil"
)

func setupBookingHandler(t *testing.T) (*BookingHandler, *gorm.DB, func()) {
	t.Helper()

	db := testutil.SetupTestDB(t)

	cfg := handlerTestConfig()
	cfg.Booking = config.BookingConfig{
		SlotMinutes:  30,
		DayStartHour: 9,
		DayEndHour:   18,
	}

	bookingService := service.NewBookingService(
		repository.NewBookingRepository(db),
		repository.NewEventRepository(db),
		repository.NewUserRepository(db),
		nil, nil, cfg,
	)
	h := NewBookingHandler(bookingService)

	cleanup := func() {
		testutil.CleanupTestDB(t, db)
	}
	return h, db, cleanup
}

func TestBookingHandler_ListSlots(t *testing.T) {
	h, db, cleanup := setupBookingHandler(t)
	defer cleanup()

	host := testutil.TestUser(t, db)

	router := gin.New()
	router.GET("/schedule/:hostID/slots", h.ListSlots)

	tomorrow := time.Now().AddDate(0, 0, 1).Format("2006-01-02")

	t.Run("success", func(t *testing.T) {
		path := fmt.Sprintf("/schedule/%d/slots?date=%s", host.ID, tomorrow)
		resp := parseResponse(t, performRequest(router, "GET", path, nil))
		assert.Equal(t, response.CodeSuccess, resp.Code)
	})

	t.Run("unknown host", func(t *testing.T) {
		path := fmt.Sprintf("/schedule/99999/slots?date=%s", tomorrow)
		resp := parseResponse(t, performRequest(router, "GET", path, nil))
		assert.Equal(t, response.CodeResourceNotFound, resp.Code)
	})

	t.Run("bad date", func(t *testing.T) {
		path := fmt.Sprintf("/schedule/%d/slots?date=tomorrow", host.ID)
		resp := parseResponse(t, performRequest(router, "GET", path, nil))
		assert.Equal(t, response.CodeParamError, resp.Code)
	})
}

func TestBookingHandler_Create(t *testing.T) {
	h, db, cleanup := setupBookingHandler(t)
	defer cleanup()

	host := testutil.TestUser(t, db)

	router := gin.New()
	router.POST("/schedule/:hostID/bookings", h.Create)

	start := time.Now().AddDate(0, 0, 1).Truncate(time.Hour)
	path := fmt.Sprintf("/schedule/%d/bookings", host.ID)

	t.Run("success", func(t *testing.T) {
		resp := parseResponse(t, performRequest(router, "POST", path, dto.CreateBookingRequest{
			GuestName:  "张三",
			GuestEmail: "guest@example.com",
			StartAt:    start,
			EndAt:      start.Add(30 * time.Minute),
		}))
		assert.Equal(t, response.CodeSuccess, resp.Code)
	})

	t.Run("slot in past", func(t *testing.T) {
		past := time.Now().Add(-2 * time.Hour)
		resp := parseResponse(t, performRequest(router, "POST", path, dto.CreateBookingRequest{
			GuestName:  "迟到者",
			GuestEmail: "late@example.com",
			StartAt:    past,
			EndAt:      past.Add(30 * time.Minute),
		}))
		assert.Equal(t, response.CodeParamError, resp.Code)
	})

	t.Run("missing guest email", func(t *testing.T) {
		resp := parseResponse(t, performRequest(router, "POST", path, dto.CreateBookingRequest{
			GuestName: "无邮箱",
			StartAt:   start.Add(time.Hour),
			EndAt:     start.Add(time.Hour + 30*time.Minute),
		}))
		assert.Equal(t, response.CodeParamError, resp.Code)
	})
}

func TestBookingHandler_ConfirmAndCancel(t *testing.T) {
	h, db, cleanup := setupBookingHandler(t)
	defer cleanup()

	host := testutil.TestUser(t, db)
	booking := testutil.TestBooking(t, db, host.ID)

	router := gin.New()
	router.POST("/bookings/:id/confirm", asUser(host.ID), h.Confirm)
	router.POST("/bookings/:id/cancel", asUser(host.ID), h.Cancel)

	confirmPath := fmt.Sprintf("/bookings/%d/confirm", booking.ID)
	cancelPath := fmt.Sprintf("/bookings/%d/cancel", booking.ID)

	resp := parseResponse(t, performRequest(router, "POST", confirmPath, nil))
	require.Equal(t, response.CodeSuccess, resp.Code)

	// 已确认后重复确认被拒
	resp = parseResponse(t, performRequest(router, "POST", confirmPath, nil))
	assert.Equal(t, response.CodeDuplicateAction, resp.Code)

	resp = parseResponse(t, performRequest(router, "POST", cancelPath, nil))
	require.Equal(t, response.CodeSuccess, resp.Code)

	reloaded, err := repository.NewBookingRepository(db).GetByID(booking.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingCanceled, reloaded.Status)
}

func TestBookingHandler_List(t *testing.T) {
	h, db, cleanup := setupBookingHandler(t)
	defer cleanup()

	host := testutil.TestUser(t, db)
	testutil.TestBooking(t, db, host.ID)
	testutil.TestBooking(t, db, host.ID, testutil.WithBookingStatus(model.BookingConfirmed))

	router := gin.New()
	router.GET("/bookings", asUser(host.ID), h.List)

	resp := parseResponse(t, performRequest(router, "GET", "/bookings?status=pending", nil))
	assert.Equal(t, response.CodeSuccess, resp.Code)
}
