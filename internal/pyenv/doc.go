// Package pyenv inspects installed Python distributions.
//
// An Environment is a list of site-packages directories. Distributions are
// found through their *.dist-info (wheel installs) or *.egg-info (legacy
// installs) metadata directories, matched by PEP 503 normalized name.
// File access is confined to the site-packages root that holds the
// distribution.
package pyenv
