package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
)

// ErrorsTestSuite 错误包测试套件
type ErrorsTestSuite struct {
	suite.Suite
}

// 测试创建新错误
func (suite *ErrorsTestSuite) TestNew() {
	err := New(ErrInvalidParam)
	suite.NotNil(err)
	suite.Equal(ErrInvalidParam, err.Code)
	suite.Equal("无效的参数", err.Message)
	suite.Empty(err.Details)

	err = New(ErrInsufficientBalance, "余额 5", "投注 10")
	suite.Equal("余额不足", err.Message)
	suite.Equal("余额 5; 投注 10", err.Details)
}

// 测试格式化错误创建
func (suite *ErrorsTestSuite) TestNewf() {
	err := Newf(ErrInvalidBet, "单线投注 %d 超出范围", 500)
	suite.Equal(ErrInvalidBet, err.Code)
	suite.Equal("单线投注 500 超出范围", err.Details)
}

// 测试错误包装
func (suite *ErrorsTestSuite) TestWrap() {
	originalErr := errors.New("连接被拒绝")
	wrappedErr := Wrap(originalErr, ErrOutcomeFetch)
	suite.Equal(ErrOutcomeFetch, wrappedErr.Code)
	suite.Equal("连接被拒绝", wrappedErr.Details)
	suite.Equal(originalErr, wrappedErr.Cause)

	suite.Nil(Wrap(nil, ErrUnknown))

	// 包装已有的AppError，保留原始错误码
	appErr := New(ErrOutcomeTimeout, "3s")
	wrappedAppErr := Wrap(appErr, ErrOutcomeFetch, "spin-1")
	suite.Equal(ErrOutcomeTimeout, wrappedAppErr.Code)
	suite.Contains(wrappedAppErr.Details, "spin-1")
}

// 测试格式化错误包装
func (suite *ErrorsTestSuite) TestWrapf() {
	originalErr := errors.New("EOF")
	wrappedErr := Wrapf(originalErr, ErrConfigLoad, "读取 %s 失败", "config.yaml")
	suite.Equal(ErrConfigLoad, wrappedErr.Code)
	suite.Equal("读取 config.yaml 失败", wrappedErr.Details)
	suite.Equal(originalErr, wrappedErr.Cause)
}

// 测试错误码判断
func (suite *ErrorsTestSuite) TestIs() {
	err := New(ErrSpinInProgress)
	suite.True(Is(err, ErrSpinInProgress))
	suite.False(Is(err, ErrInFreeSpins))
	suite.False(Is(nil, ErrSpinInProgress))
	suite.False(Is(errors.New("标准错误"), ErrUnknown))

	// fmt包装后依然可以识别
	suite.True(Is(fmt.Errorf("spin: %w", err), ErrSpinInProgress))
}

// 测试获取错误码
func (suite *ErrorsTestSuite) TestGetCode() {
	suite.Equal(ErrInvalidOutcome, GetCode(New(ErrInvalidOutcome)))
	suite.Equal(ErrUnknown, GetCode(errors.New("标准错误")))
	suite.Equal(ErrorCode(0), GetCode(nil))
}

// 测试错误消息
func (suite *ErrorsTestSuite) TestError() {
	err := &AppError{Code: ErrNotFound, Message: "资源未找到"}
	suite.Equal("[1002] 资源未找到", err.Error())

	err.Details = "reel 7"
	suite.Equal("[1002] 资源未找到: reel 7", err.Error())
}

// 测试WithCause
func (suite *ErrorsTestSuite) TestWithCause() {
	cause := errors.New("handler panic")
	err := New(ErrCueFailed).WithCause(cause)
	suite.Equal(cause, err.Unwrap())
	suite.Equal("handler panic", err.Details)

	err2 := New(ErrCueFailed, "big_win").WithCause(cause)
	suite.Equal("big_win", err2.Details)
}

// 测试HTTP状态码映射
func (suite *ErrorsTestSuite) TestHTTPStatus() {
	testCases := []struct {
		code     ErrorCode
		expected int
	}{
		{ErrInvalidParam, 400},
		{ErrInvalidBet, 400},
		{ErrNotFound, 404},
		{ErrInsufficientBalance, 402},
		{ErrSpinInProgress, 409},
		{ErrFeatureTransition, 409},
		{ErrInFreeSpins, 409},
		{ErrOutcomeTimeout, 504},
		{ErrOutcomeFetch, 502},
		{ErrUnknown, 500},
	}

	for _, tc := range testCases {
		err := New(tc.code)
		suite.Equal(tc.expected, err.HTTPStatus(), "错误码 %d 应该返回HTTP状态码 %d", tc.code, tc.expected)
	}
}

// 测试可重试判断
func (suite *ErrorsTestSuite) TestIsRetryable() {
	for _, code := range []ErrorCode{ErrTimeout, ErrOutcomeFetch, ErrOutcomeTimeout, ErrSpinInProgress} {
		suite.True(IsRetryable(New(code)), "错误码 %d 应该是可重试的", code)
	}
	for _, code := range []ErrorCode{ErrInvalidParam, ErrInsufficientBalance, ErrInvalidOutcome} {
		suite.False(IsRetryable(New(code)), "错误码 %d 不应该是可重试的", code)
	}
	suite.False(IsRetryable(nil))
}

// 测试调用栈捕获
func (suite *ErrorsTestSuite) TestStackCapture() {
	err := New(ErrUnknown)
	suite.NotEmpty(err.Stack)
	suite.NotEmpty(err.GetStack())
}

// 测试未知错误码
func (suite *ErrorsTestSuite) TestUnknownErrorCode() {
	err := New(ErrorCode(99999))
	suite.Equal(ErrorCode(99999), err.Code)
	suite.Equal("未知错误", err.Message)
}

// 测试错误响应
func (suite *ErrorsTestSuite) TestErrorResponse() {
	err := New(ErrInsufficientBalance)
	response := NewErrorResponse(err)
	suite.False(response.Success)
	suite.Equal(err, response.Error)
	suite.Greater(response.Timestamp, int64(0))
}

func TestErrorsSuite(t *testing.T) {
	suite.Run(t, new(ErrorsTestSuite))
}
