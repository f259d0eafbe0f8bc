// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: 2025-Present Defense Unicorns

package uses

import (
	"github.com/package-url/packageurl-go"

	"github.com/defenseunicorns/pipa/config"
)

// PackageAliasMapper handles mapping package URL aliases to their resolved forms
type PackageAliasMapper interface {
	ResolveAlias(packageurl.PackageURL) (packageurl.PackageURL, bool)
}

// MapBasedResolver resolves aliases based on a map of aliases
type MapBasedResolver map[string]config.Alias

// ResolveAlias resolves a package URL if its type is an alias
func (r MapBasedResolver) ResolveAlias(pURL packageurl.PackageURL) (packageurl.PackageURL, bool) {
	aliasDef, ok := r[pURL.Type]
	if !ok {
		return pURL, false
	}

	qualifiers := pURL.Qualifiers.Map()

	if aliasDef.Base != "" && qualifiers[QualifierBaseURL] == "" {
		qualifiers[QualifierBaseURL] = aliasDef.Base
	}

	if aliasDef.TokenFromEnv != "" && qualifiers[QualifierTokenFromEnv] == "" {
		qualifiers[QualifierTokenFromEnv] = aliasDef.TokenFromEnv
	}

	return packageurl.PackageURL{
		Type:       aliasDef.Type,
		Namespace:  pURL.Namespace,
		Name:       pURL.Name,
		Version:    pURL.Version,
		Qualifiers: packageurl.QualifiersFromMap(qualifiers),
		Subpath:    pURL.Subpath,
	}, true
}
