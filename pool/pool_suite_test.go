/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 */

package pool_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestPool(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Connection Pool Suite")
}
