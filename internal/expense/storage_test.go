package expense

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("LocalStorage", func() {
	var (
		tmpDir  string
		storage Storage
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		var err error
		storage, err = NewLocalStorage(filepath.Join(tmpDir, "receipts"))
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("Save", func() {
		It("should write the file and return its name", func() {
			name, err := storage.Save("test.jpg", []byte("test file content"))
			Expect(err).NotTo(HaveOccurred())
			Expect(name).To(Equal("test.jpg"))

			content, err := os.ReadFile(filepath.Join(tmpDir, "receipts", "test.jpg"))
			Expect(err).NotTo(HaveOccurred())
			Expect(content).To(Equal([]byte("test file content")))
		})

		DescribeTable("rejecting names outside the directory",
			func(name string) {
				_, err := storage.Save(name, []byte("x"))
				Expect(err).To(MatchError(ContainSubstring("invalid file name")))
			},
			Entry("parent", "../escape.jpg"),
			Entry("nested", "sub/dir.jpg"),
			Entry("dot dot", ".."),
			Entry("empty", ""),
		)
	})

	Describe("Get", func() {
		It("should read a saved file", func() {
			_, err := storage.Save("test.jpg", []byte("abc"))
			Expect(err).NotTo(HaveOccurred())

			data, err := storage.Get("test.jpg")
			Expect(err).NotTo(HaveOccurred())
			Expect(data).To(Equal([]byte("abc")))
		})

		It("returns ErrNotFound for a missing file", func() {
			_, err := storage.Get("nonexistent.jpg")
			Expect(err).To(MatchError(ErrNotFound))
		})
	})

	Describe("Delete", func() {
		It("should remove the file", func() {
			_, err := storage.Save("test.jpg", []byte("abc"))
			Expect(err).NotTo(HaveOccurred())

			Expect(storage.Delete("test.jpg")).To(Succeed())
			_, err = os.Stat(filepath.Join(tmpDir, "receipts", "test.jpg"))
			Expect(os.IsNotExist(err)).To(BeTrue())
		})

		It("returns ErrNotFound for a missing file", func() {
			Expect(storage.Delete("nonexistent.jpg")).To(MatchError(ErrNotFound))
		})
	})

	Describe("NewLocalStorage", func() {
		It("should fail when the path is a file", func() {
			file := filepath.Join(tmpDir, "file")
			Expect(os.WriteFile(file, []byte("x"), 0644)).To(Succeed())
			_, err := NewLocalStorage(file)
			Expect(err).To(HaveOccurred())
		})
	})
})
