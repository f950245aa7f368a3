package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/schoolhq/settlement-engine/internal/domain"
	"github.com/schoolhq/settlement-engine/tests/mocks"
)

func TestObligationsFor_MandatoryAndCustomAmount(t *testing.T) {
	mockFeeRepo := &mocks.MockFeeRepository{}
	mockStudentRepo := &mocks.MockStudentRepository{}
	service := NewObligationService(mockFeeRepo, mockStudentRepo)

	studentID := uuid.New()
	sessionID := uuid.New()
	classID := uuid.New()
	custom := decimal.NewFromInt(4500)

	tuition := &domain.ClassFeeItem{
		ID:          uuid.New(),
		ClassID:     classID,
		SessionID:   sessionID,
		IsActive:    true,
		FeeName:     "Tuition",
		BaseAmount:  decimal.NewFromInt(5000),
		IsMandatory: true,
		CreatedAt:   time.Now(),
	}
	uniform := &domain.ClassFeeItem{
		ID:           uuid.New(),
		ClassID:      classID,
		SessionID:    sessionID,
		CustomAmount: &custom,
		IsActive:     true,
		FeeName:      "Uniform",
		BaseAmount:   decimal.NewFromInt(6000),
		IsMandatory:  true,
		CreatedAt:    time.Now(),
	}

	mockStudentRepo.On("GetActiveClassID", mock.Anything, mock.Anything, studentID).Return(classID, nil)
	mockFeeRepo.On("ListClassFeeItems", mock.Anything, mock.Anything, studentID, classID, sessionID, (*uuid.UUID)(nil)).
		Return([]*domain.ClassFeeItem{tuition, uniform}, nil)
	mockFeeRepo.On("ListOptInsByStudent", mock.Anything, mock.Anything, studentID).
		Return([]*domain.StudentOptionalFee{}, nil)

	obligations, err := service.ObligationsFor(context.Background(), nil, studentID, sessionID, nil)

	assert.NoError(t, err)
	assert.Len(t, obligations, 2)
	assert.True(t, obligations[0].EffectiveAmount.Equal(decimal.NewFromInt(5000)))
	assert.True(t, obligations[1].EffectiveAmount.Equal(decimal.NewFromInt(4500)), "custom amount overrides base")
	mockFeeRepo.AssertExpectations(t)
}

func TestObligationsFor_OptionalRequiresOptIn(t *testing.T) {
	mockFeeRepo := &mocks.MockFeeRepository{}
	mockStudentRepo := &mocks.MockStudentRepository{}
	service := NewObligationService(mockFeeRepo, mockStudentRepo)

	studentID := uuid.New()
	sessionID := uuid.New()
	classID := uuid.New()

	busFee := &domain.ClassFeeItem{
		ID:          uuid.New(),
		ClassID:     classID,
		SessionID:   sessionID,
		IsActive:    true,
		FeeName:     "Bus",
		BaseAmount:  decimal.NewFromInt(1500),
		IsMandatory: false,
	}
	lunchFee := &domain.ClassFeeItem{
		ID:          uuid.New(),
		ClassID:     classID,
		SessionID:   sessionID,
		IsActive:    true,
		FeeName:     "Lunch",
		BaseAmount:  decimal.NewFromInt(2000),
		IsMandatory: false,
	}

	mockStudentRepo.On("GetActiveClassID", mock.Anything, mock.Anything, studentID).Return(classID, nil)
	mockFeeRepo.On("ListClassFeeItems", mock.Anything, mock.Anything, studentID, classID, sessionID, (*uuid.UUID)(nil)).
		Return([]*domain.ClassFeeItem{busFee, lunchFee}, nil)
	mockFeeRepo.On("ListOptInsByStudent", mock.Anything, mock.Anything, studentID).
		Return([]*domain.StudentOptionalFee{
			{ID: uuid.New(), StudentID: studentID, ClassFeeItemID: busFee.ID, IsActive: true},
		}, nil)

	obligations, err := service.ObligationsFor(context.Background(), nil, studentID, sessionID, nil)

	assert.NoError(t, err)
	assert.Len(t, obligations, 1, "only the opted-in optional fee applies")
	assert.Equal(t, "Bus", obligations[0].FeeName)
}

func TestObligationsFor_LockedOptInSurvivesDeactivation(t *testing.T) {
	mockFeeRepo := &mocks.MockFeeRepository{}
	mockStudentRepo := &mocks.MockStudentRepository{}
	service := NewObligationService(mockFeeRepo, mockStudentRepo)

	studentID := uuid.New()
	sessionID := uuid.New()
	classID := uuid.New()
	lockedAmount := decimal.NewFromInt(1800)

	busFee := &domain.ClassFeeItem{
		ID:          uuid.New(),
		ClassID:     classID,
		SessionID:   sessionID,
		IsActive:    true,
		FeeName:     "Bus",
		BaseAmount:  decimal.NewFromInt(2500),
		IsMandatory: false,
	}

	mockStudentRepo.On("GetActiveClassID", mock.Anything, mock.Anything, studentID).Return(classID, nil)
	mockFeeRepo.On("ListClassFeeItems", mock.Anything, mock.Anything, studentID, classID, sessionID, (*uuid.UUID)(nil)).
		Return([]*domain.ClassFeeItem{busFee}, nil)
	mockFeeRepo.On("ListOptInsByStudent", mock.Anything, mock.Anything, studentID).
		Return([]*domain.StudentOptionalFee{
			{
				ID:             uuid.New(),
				StudentID:      studentID,
				ClassFeeItemID: busFee.ID,
				IsActive:       false,
				IsLocked:       true,
				LockedAmount:   &lockedAmount,
			},
		}, nil)

	obligations, err := service.ObligationsFor(context.Background(), nil, studentID, sessionID, nil)

	assert.NoError(t, err)
	assert.Len(t, obligations, 1)
	assert.True(t, obligations[0].IsLocked)
	assert.True(t, obligations[0].EffectiveAmount.Equal(lockedAmount),
		"locked opt-in keeps the amount frozen at lock time")
}

func TestObligationsFor_LockedAssignmentSurvivesClassRemoval(t *testing.T) {
	mockFeeRepo := &mocks.MockFeeRepository{}
	mockStudentRepo := &mocks.MockStudentRepository{}
	service := NewObligationService(mockFeeRepo, mockStudentRepo)

	studentID := uuid.New()
	sessionID := uuid.New()
	classID := uuid.New()
	custom := decimal.NewFromInt(5200)

	// The assignment was deactivated after payments started, but the lock
	// keeps the obligation in place with its frozen amount.
	tuition := &domain.ClassFeeItem{
		ID:           uuid.New(),
		ClassID:      classID,
		SessionID:    sessionID,
		CustomAmount: &custom,
		IsLocked:     true,
		IsActive:     false,
		FeeName:      "Tuition",
		BaseAmount:   decimal.NewFromInt(6000),
		IsMandatory:  true,
	}

	mockStudentRepo.On("GetActiveClassID", mock.Anything, mock.Anything, studentID).Return(classID, nil)
	mockFeeRepo.On("ListClassFeeItems", mock.Anything, mock.Anything, studentID, classID, sessionID, (*uuid.UUID)(nil)).
		Return([]*domain.ClassFeeItem{tuition}, nil)
	mockFeeRepo.On("ListOptInsByStudent", mock.Anything, mock.Anything, studentID).
		Return([]*domain.StudentOptionalFee{}, nil)

	obligations, err := service.ObligationsFor(context.Background(), nil, studentID, sessionID, nil)

	assert.NoError(t, err)
	assert.Len(t, obligations, 1)
	assert.True(t, obligations[0].IsLocked)
	assert.True(t, obligations[0].EffectiveAmount.Equal(custom),
		"locked assignment keeps its amount after removal from the class")
}

func TestObligationsFor_NoActiveEnrollment(t *testing.T) {
	mockFeeRepo := &mocks.MockFeeRepository{}
	mockStudentRepo := &mocks.MockStudentRepository{}
	service := NewObligationService(mockFeeRepo, mockStudentRepo)

	studentID := uuid.New()

	mockStudentRepo.On("GetActiveClassID", mock.Anything, mock.Anything, studentID).Return(uuid.Nil, nil)

	obligations, err := service.ObligationsFor(context.Background(), nil, studentID, uuid.New(), nil)

	assert.NoError(t, err)
	assert.Nil(t, obligations)
	mockFeeRepo.AssertNotCalled(t, "ListClassFeeItems")
}
