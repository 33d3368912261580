package service

import "errors"

var ErrEmptyCallback = errors.New("callback data is empty")
