// internal/store/extract.go
package store

import (
	"path"
	"strings"

	"github.com/user/sclipsync/internal/types"
)

// Workflow tools whose results carry extractable artifacts.
const (
	toolScriptWriter       = "script_writer"
	toolBrollFinder        = "broll_finder"
	toolVoiceoverGenerator = "voiceover_generator"
	toolVideoProcessor     = "video_processor"
)

// gui_update subtypes, mirroring the tool results above.
const (
	updateScriptCreated    = "script_created"
	updateMediaDownloaded  = "media_downloaded"
	updateVoiceoverCreated = "voiceover_created"
	updateVideoCreated     = "video_created"
)

// extractToolArtifacts updates the derived collections from a successful
// tool result. Callers have already checked success and a non-nil result.
func (s *Store) extractToolArtifacts(msg types.Message) {
	res := msg.Result
	switch msg.Tool {
	case toolScriptWriter:
		s.addScriptText(getString(res, "script_text"), msg)
	case toolBrollFinder:
		s.addBrollFiles(res, msg)
	case toolVoiceoverGenerator:
		s.addMediaFile(getString(res, "audio_path"), types.FileVoiceover, res, msg)
	case toolVideoProcessor:
		if videoPath := getString(res, "video_path"); videoPath != "" {
			s.addMediaFile(videoPath, types.FileVideo, res, msg)
			s.state.VideoPreviews = append(s.state.VideoPreviews, types.VideoPreview{
				ID:        types.NewPreviewID(),
				Path:      videoPath,
				Timestamp: msg.Timestamp,
				Status:    "ready",
				Thumbnail: getString(res, "thumbnail"),
			})
		}
	}
}

// extractGUIUpdate performs the same category of updates as the matching
// tool result branch, sourced from data.* instead of result.*.
func (s *Store) extractGUIUpdate(msg types.Message) {
	data := msg.Data
	if data == nil {
		return
	}
	switch msg.UpdateType {
	case updateScriptCreated:
		s.addScriptText(getString(data, "script_content"), msg)
	case updateMediaDownloaded:
		s.addDownloadedFiles(getMaps(data, "media_files"), msg)
	case updateVoiceoverCreated:
		s.addMediaFile(getString(data, "audio_path"), types.FileVoiceover, data, msg)
	case updateVideoCreated:
		if videoPath := getString(data, "video_path"); videoPath != "" {
			s.addMediaFile(videoPath, types.FileVideo, data, msg)
			s.state.VideoPreviews = append(s.state.VideoPreviews, types.VideoPreview{
				ID:        types.NewPreviewID(),
				Path:      videoPath,
				Timestamp: msg.Timestamp,
				Status:    "ready",
				Thumbnail: getString(data, "thumbnail"),
			})
		}
	}
}

// addScriptText appends a script version and enforces script exclusivity:
// scripts never appear in the project file list.
func (s *Store) addScriptText(text string, msg types.Message) {
	if text == "" {
		return
	}
	s.state.Scripts = append(s.state.Scripts, types.ScriptContent{
		ID:        types.NewScriptID(),
		Content:   text,
		Timestamp: msg.Timestamp,
		Tool:      msg.Tool,
	})
	s.state.ProjectFiles = purgeScriptFiles(s.state.ProjectFiles)
}

// addBrollFiles prefers the fully described downloaded_files entries and
// falls back to bare file_paths, pairing each path with metadata[i] and
// source_types[i] when those run in parallel.
func (s *Store) addBrollFiles(res map[string]any, msg types.Message) {
	if files := getMaps(res, "downloaded_files"); len(files) > 0 {
		s.addDownloadedFiles(files, msg)
		return
	}
	paths := getStrings(res, "file_paths")
	metadata := getMaps(res, "metadata")
	sourceTypes := getStrings(res, "source_types")
	projectID := getString(res, "project_id")
	for i, p := range paths {
		if p == "" {
			continue
		}
		file := types.ProjectFile{
			ID:        types.NewFileID(),
			Name:      path.Base(p),
			Type:      types.FileImage,
			Path:      p,
			URL:       displayURL(p, projectID),
			Timestamp: msg.Timestamp,
		}
		if i < len(metadata) {
			file.Thumbnail = getString(metadata[i], "thumbnail")
			file.Duration = getFloat(metadata[i], "duration")
			file.Size = getInt(metadata[i], "size")
			if t := getString(metadata[i], "type"); t != "" {
				file.Type = t
			}
		}
		if i < len(sourceTypes) {
			file.Source = sourceTypes[i]
		}
		s.state.ProjectFiles = append(s.state.ProjectFiles, file)
	}
}

// addDownloadedFiles maps fully described media entries directly.
func (s *Store) addDownloadedFiles(files []map[string]any, msg types.Message) {
	for _, f := range files {
		filePath := getString(f, "path")
		name := getString(f, "name")
		if name == "" {
			name = path.Base(filePath)
		}
		fileType := getString(f, "type")
		if fileType == "" {
			fileType = types.FileImage
		}
		if fileType == types.FileScript {
			continue
		}
		s.state.ProjectFiles = append(s.state.ProjectFiles, types.ProjectFile{
			ID:        types.NewFileID(),
			Name:      name,
			Type:      fileType,
			Path:      filePath,
			URL:       getString(f, "url"),
			Size:      getInt(f, "size"),
			Timestamp: msg.Timestamp,
			Thumbnail: getString(f, "thumbnail"),
			Duration:  getFloat(f, "duration"),
			Source:    getString(f, "source"),
		})
	}
}

// addMediaFile appends one artifact identified by a bare path, typed by the
// caller (voiceover audio, assembled video).
func (s *Store) addMediaFile(filePath, fileType string, payload map[string]any, msg types.Message) {
	if filePath == "" {
		return
	}
	s.state.ProjectFiles = append(s.state.ProjectFiles, types.ProjectFile{
		ID:        types.NewFileID(),
		Name:      path.Base(filePath),
		Type:      fileType,
		Path:      filePath,
		URL:       displayURL(filePath, getString(payload, "project_id")),
		Size:      getInt(payload, "size"),
		Timestamp: msg.Timestamp,
		Duration:  getFloat(payload, "duration"),
	})
}

// displayURL builds the serving URL for an artifact. An explicit project id
// wins; otherwise the id is parsed out of the conventional
// .../Projects/<id>/... path layout. Empty when neither yields an id.
func displayURL(filePath, projectID string) string {
	if projectID == "" {
		projectID = projectIDFromPath(filePath)
	}
	if projectID == "" {
		return ""
	}
	return "/api/projects/" + projectID + "/files/" + path.Base(filePath)
}

// projectIDFromPath extracts the segment following "Projects" (or
// "projects") from a filesystem path. Best-effort: returns empty when the
// path does not follow the convention.
func projectIDFromPath(filePath string) string {
	segments := strings.Split(filePath, "/")
	for i, seg := range segments {
		if (seg == "Projects" || seg == "projects") && i+1 < len(segments) {
			return segments[i+1]
		}
	}
	return ""
}

// Shape-tolerant accessors: a field of the wrong type reads as its zero
// value rather than failing the whole message.

func getString(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

func getFloat(m map[string]any, key string) float64 {
	if m == nil {
		return 0
	}
	switch v := m[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}

func getInt(m map[string]any, key string) int64 {
	return int64(getFloat(m, key))
}

func getStrings(m map[string]any, key string) []string {
	if m == nil {
		return nil
	}
	items, _ := m[key].([]any)
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func getMaps(m map[string]any, key string) []map[string]any {
	if m == nil {
		return nil
	}
	items, _ := m[key].([]any)
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if entry, ok := item.(map[string]any); ok {
			out = append(out, entry)
		}
	}
	return out
}
