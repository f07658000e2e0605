// Copyright 2025 Contriboss
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/pkm-project/pkm/internal/pkmctx"
)

// Publisher is the narrow interface the core calls into for uploading
// built artifacts; the actual wire protocol (standard multipart upload,
// HTTP Basic auth) lives here at the CLI boundary, matching spec.md §1's
// "publisher is an interface the core calls into".
type Publisher interface {
	Upload(indexURL, user, password, artifactPath string) error
}

type httpPublisher struct{ client *http.Client }

func (p httpPublisher) Upload(indexURL, user, password, artifactPath string) error {
	f, err := os.Open(artifactPath)
	if err != nil {
		return errors.Wrapf(err, "opening %s", artifactPath)
	}
	defer f.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("content", filepath.Base(artifactPath))
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, f); err != nil {
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, indexURL, &body)
	if err != nil {
		return err
	}
	req.SetBasicAuth(user, password)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	client := p.client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return errors.Wrap(err, "uploading artifact")
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("publish failed: HTTP %s", resp.Status)
	}
	return nil
}

func newPublishCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "publish <user> <password>",
		Short: "Upload built artifacts to the configured index",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := pkmctx.From(cmd.Context())
			user, password := args[0], args[1]

			buildsDir := filepath.Join(rt.Home.CacheDir(), "source-builds")
			entries, err := os.ReadDir(buildsDir)
			if err != nil {
				return errors.Wrapf(err, "reading build output %s", buildsDir)
			}

			indexURL := os.Getenv("PKM_PUBLISH_URL")
			if indexURL == "" {
				return fmt.Errorf("PKM_PUBLISH_URL must name the upload endpoint")
			}

			var publisher Publisher = httpPublisher{}
			for _, e := range entries {
				if e.IsDir() {
					continue
				}
				path := filepath.Join(buildsDir, e.Name())
				if err := publisher.Upload(indexURL, user, password, path); err != nil {
					return err
				}
				rt.Log.WithField("artifact", e.Name()).Info("published")
			}
			return nil
		},
	}
}
