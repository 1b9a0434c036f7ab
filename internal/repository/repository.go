package repository

// Package repository contains data access layer abstractions.
// Implementations can live in subpackages (e.g., postgres, mongo) inside this directory.

import "errors"

// ErrShopTaken reports a shop code collision on Create.
var ErrShopTaken = errors.New("shop id already taken")
