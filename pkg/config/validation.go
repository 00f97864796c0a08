package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// namePattern restricts department, project and user names to a single
// path component that lfs and the shell handle without quoting.
var namePattern = regexp.MustCompile(`^[\w-]+$`)

// Validate checks the configuration with struct tags and the cross-field
// rules tags cannot express.
func Validate(cfg *Config) error {
	validate := validator.New()
	validate.RegisterTagNameFunc(yamlName)
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return fmt.Errorf("%s: %w", describe(verrs[0]), err)
		}
		return err
	}

	if !filepath.IsAbs(cfg.Defaults.Mountpoint) {
		return fmt.Errorf("mountpoint %q is not an absolute path", cfg.Defaults.Mountpoint)
	}
	if !namePattern.MatchString(cfg.Defaults.WorkDirName) {
		return fmt.Errorf("work_dir_name %q is not a valid directory name", cfg.Defaults.WorkDirName)
	}

	if err := cfg.Defaults.DefaultQuotas.Projects.Check(); err != nil {
		return fmt.Errorf("'projects' is not a proper quota dictionary: %w", err)
	}
	if err := cfg.Defaults.DefaultQuotas.Workdir.Check(); err != nil {
		return fmt.Errorf("'workdir' is not a proper quota dictionary: %w", err)
	}

	seen := make(map[string]bool)
	for _, d := range cfg.ProjectDirs {
		if !namePattern.MatchString(d.Name) {
			return fmt.Errorf("department %q is not a valid directory name", d.Name)
		}
		if d.Name == cfg.Defaults.WorkDirName {
			return fmt.Errorf("department %q collides with work_dir_name", d.Name)
		}
		for _, p := range d.Projects {
			if !namePattern.MatchString(p.Name) {
				return fmt.Errorf("project %q in department %q is not a valid directory name", p.Name, d.Name)
			}
			if seen[p.Name] {
				return fmt.Errorf("project %q is configured more than once", p.Name)
			}
			seen[p.Name] = true
			if err := cfg.ProjectQuota(p).Check(); err != nil {
				return fmt.Errorf("quota for project '%s' is not a proper quota dictionary: %w", p.Name, err)
			}
		}
	}

	for user := range cfg.WorkDirs {
		if !namePattern.MatchString(user) {
			return fmt.Errorf("work_dirs user %q is not a valid directory name", user)
		}
		if err := cfg.WorkDirQuota(user).Check(); err != nil {
			return fmt.Errorf("quota for user '%s' is not a proper quota dictionary: %w", user, err)
		}
	}

	if cfg.Journal.Enabled {
		if err := cfg.Journal.Validate(); err != nil {
			return fmt.Errorf("journal: %w", err)
		}
	}

	return nil
}

// describe turns a validator failure into a message naming the setting.
func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("value for '%s' is missing", fe.Field())
	case "dir":
		return fmt.Sprintf("path for '%s' %q does not exist or is not a directory", fe.Field(), fe.Value())
	case "file":
		return fmt.Sprintf("file for '%s' %q does not exist", fe.Field(), fe.Value())
	default:
		return fmt.Sprintf("invalid value for '%s'", fe.Field())
	}
}

// yamlName reports fields by their key in the site configuration.
func yamlName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
	if name == "-" || name == "" {
		return f.Name
	}
	return name
}
