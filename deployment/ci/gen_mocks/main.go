package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// mockable lists the sources whose interfaces are mocked with gomock.
var mockable = map[string]bool{
	"pkg/memo/store.go": true,
}

type FileInfo struct {
	Path     string
	Pkg      string
	FileName string
}

func main() {
	skipDirs := map[string]bool{
		"vendor":     true,
		"docs":       true,
		"mocks":      true,
		"tmp":        true,
		".git":       true,
		"specs":      true,
		"deployment": true,
		".vscode":    true,
		".idea":      true,
		"examples":   true,
	}

	timeStart := time.Now()

	fileCh := make(chan FileInfo, 100)
	var wgWalk sync.WaitGroup
	var wgMock sync.WaitGroup

	const numWorkers = 5

	// Start the mock generation workers
	for i := 0; i < numWorkers; i++ {
		wgMock.Add(1)
		go func() {
			defer wgMock.Done()
			for f := range fileCh {
				// Mocks live next to the source so tests in the same package can use them.
				completeDest := filepath.Join(filepath.Dir(f.Path), f.FileName+"_mock.go")

				cmd := exec.Command("go", "run", "go.uber.org/mock/mockgen@v0.5.2",
					"-source="+f.Path,
					"-destination="+completeDest,
					"-package="+f.Pkg,
				)
				if err := cmd.Run(); err != nil {
					fmt.Printf("Error generating mock for %s\n", f.FileName)
				} else {
					fmt.Printf("Mock generated: %s\n", completeDest)
				}
			}
		}()
	}

	wgWalk.Add(1)
	go func() {
		defer wgWalk.Done()
		defer close(fileCh)

		filepath.Walk(".", func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}

			if info.IsDir() {
				if skipDirs[info.Name()] || (info.Name() != "." && strings.HasPrefix(info.Name(), "_")) {
					fmt.Printf("Skipping directory: %s\n", info.Name())
					return filepath.SkipDir
				}
				return nil
			}

			if filepath.Ext(path) != ".go" || !mockable[filepath.ToSlash(path)] {
				return nil
			}

			content, err := os.ReadFile(path)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", path, err)
				return nil
			}

			if strings.Contains(string(content), "interface {") {
				fileCh <- FileInfo{
					Path:     path,
					Pkg:      extractPackage(string(content)),
					FileName: strings.ReplaceAll(filepath.Base(path), ".go", ""),
				}
			}

			return nil
		})
	}()

	wgWalk.Wait()
	wgMock.Wait()

	fmt.Printf("\nTotal execution time: %s\n", time.Since(timeStart))
}

func extractPackage(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "package ") {
			return strings.TrimPrefix(line, "package ")
		}
	}
	return ""
}
