// Copyright 2021 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package logutil is the process-wide structured logger every other
// package in this module logs through, wrapping a single zap.Logger the
// way the teacher's pkg/logutil wraps zap for all of tae.
package logutil

import (
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var defaultLogger atomic.Pointer[zap.Logger]

func init() {
	SetLevel(zapcore.InfoLevel)
}

// SetLevel (re)configures the process-wide logger at the given level. It
// is cheap enough to call from test setup to quiet or enable Debug noise.
func SetLevel(level zapcore.Level) {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		l = zap.NewNop()
	}
	defaultLogger.Store(l)
}

func GetLogger() *zap.Logger {
	return defaultLogger.Load()
}

func Info(msg string, fields ...zap.Field)  { GetLogger().Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { GetLogger().Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { GetLogger().Error(msg, fields...) }
func Debug(msg string, fields ...zap.Field) { GetLogger().Debug(msg, fields...) }

func Infof(tmpl string, args ...any)  { GetLogger().Sugar().Infof(tmpl, args...) }
func Warnf(tmpl string, args ...any)  { GetLogger().Sugar().Warnf(tmpl, args...) }
func Errorf(tmpl string, args ...any) { GetLogger().Sugar().Errorf(tmpl, args...) }
func Debugf(tmpl string, args ...any) { GetLogger().Sugar().Debugf(tmpl, args...) }
